// Package qdrant implements the semantic index backend on a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/bookrec/internal/domain"
)

const (
	payloadField = "payload"
	keyField     = "key"
)

// pointNamespace seeds deterministic point ids so re-indexing a key overwrites its point.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bookrec/qdrant/points"))

// Repository stores description vectors in one Qdrant collection.
type Repository struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New dials Qdrant at host:port. The connection is lazy; errors surface on first call.
func New(host string, port int, collection string) (*Repository, error) {
	if collection == "" {
		return nil, errors.New("qdrant collection name is required")
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Repository{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Ensure creates the collection with cosine distance if it is missing.
func (r *Repository) Ensure(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", dim)
	}
	resp, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return fmt.Errorf("qdrant collection exists: %w", err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig:  vectorsConfig(dim),
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

// Count returns the exact number of points; a missing collection counts as empty.
func (r *Repository) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := r.points.Count(ctx, &pb.CountPoints{CollectionName: r.collection, Exact: &exact})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Upsert writes points and waits for them to be applied.
func (r *Repository) Upsert(ctx context.Context, docs []domain.IndexDocument) error {
	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         toPoints(docs),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %d points: %w", len(docs), err)
	}
	return nil
}

// Search returns the k nearest payloads, closest first.
func (r *Repository) Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return []domain.Hit{}, nil
	}
	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	return toHits(resp.GetResult()), nil
}

// Drop deletes the collection.
func (r *Repository) Drop(ctx context.Context) error {
	_, err := r.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: r.collection})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("qdrant drop collection: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (r *Repository) Close() error {
	return r.conn.Close()
}

func vectorsConfig(dim int) *pb.VectorsConfig {
	return &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{Params: &pb.VectorParams{
		Size:     uint64(dim),
		Distance: pb.Distance_Cosine,
	}}}
}

func pointID(key string) string {
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func toPoints(docs []domain.IndexDocument) []*pb.PointStruct {
	points := make([]*pb.PointStruct, len(docs))
	for i := range docs {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(docs[i].Key)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: docs[i].Vector}}},
			Payload: map[string]*pb.Value{
				keyField:     stringValue(docs[i].Key),
				payloadField: stringValue(docs[i].Payload),
			},
		}
	}
	return points
}

func toHits(points []*pb.ScoredPoint) []domain.Hit {
	hits := make([]domain.Hit, len(points))
	for i, pt := range points {
		hits[i] = domain.Hit{
			Payload: pt.GetPayload()[payloadField].GetStringValue(),
			Score:   float64(pt.GetScore()),
		}
	}
	return hits
}
