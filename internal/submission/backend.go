package submission

import (
	"context"
	"sort"
)

// Storage backend names.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Backend is an interchangeable persistence layer for submission records.
// Ids come from NextID only; callers never invent them.
type Backend interface {
	NextID(ctx context.Context) (int64, error)
	// Append stores a record. A record whose id already exists is rejected
	// with ErrDuplicateID.
	Append(ctx context.Context, rec Record) error
	// Query returns records ordered by id; an empty teamID returns all.
	Query(ctx context.Context, teamID string) ([]Record, error)
	ResetAll(ctx context.Context) error
	Close() error
}

func sortByID(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
