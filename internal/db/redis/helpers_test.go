package redis

import (
	"errors"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/bookrec/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return &Store{client: c}, c
}

// command matches any invocation of the named command.
func command(name string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool {
		return len(cmd) > 0 && cmd[0] == name
	}, name)
}

func wantDBError(t *testing.T, err error, op string) {
	t.Helper()
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("err = %v (%T), want *db.Error", err, err)
	}
	if dbErr.Op != op {
		t.Errorf("db.Error op = %q, want %q", dbErr.Op, op)
	}
}
