package domain

// KeyPrefix namespaces every key bookrec writes to Valkey/Redis.
const KeyPrefix = "bookrec:"
