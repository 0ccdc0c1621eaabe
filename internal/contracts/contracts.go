// Package contracts defines the external collaborator surfaces the core
// Snapshot & Change Engine calls out to but does not implement: applying a
// generated sync script to a target, delivering scan notifications, and
// decrypting an opaque stored credential. Concrete implementations (SQL
// execution, email/LLM-assisted merge suggestion, at-rest decryption) live
// outside this module.
package contracts

import (
	"context"
	"fmt"

	"github.com/sentineldb/sentinel/internal/types"
)

// ScriptResult is the outcome of applying a generated script to a target.
type ScriptResult struct {
	Success bool
	Output  string
}

// ScriptApplier executes a generated "CREATE OR ALTER / DROP" script against
// a target database. It is called by the separate sync layer, outside the
// core; the core never invokes it directly.
type ScriptApplier interface {
	ApplyScript(ctx context.Context, conn ConnectionDescriptor, script string) (ScriptResult, error)
}

// Notifier is invoked once per scan after the ScanLog reaches a terminal
// status. A failure here MUST NOT be retried by the core and MUST NOT fail
// the scan.
type Notifier interface {
	Notify(ctx context.Context, log types.ScanLog, entries []types.ScanLogEntry, pending []types.DetectedChange) error
}

// Decryptor turns an opaque, tag-prefixed credential string into a plain
// password. The core treats the input as opaque and never inspects its tag.
type Decryptor interface {
	Decrypt(ctx context.Context, opaque string) (string, error)
}

// ConnectionDescriptor is the immutable value a ScriptApplier or Extractor
// uses to open a transport to one target. Password is always the decrypted
// plain credential by the time it reaches this struct.
type ConnectionDescriptor struct {
	Target   types.Target
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// DSN renders the descriptor as a space-separated key=value connection
// string, the form accepted by the pq/pgx and most SQL Server driver
// DSN parsers.
func (c ConnectionDescriptor) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password)
}

// NoopNotifier is a Notifier that discards every call; useful as a default
// when no real notification collaborator is configured.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(context.Context, types.ScanLog, []types.ScanLogEntry, []types.DetectedChange) error {
	return nil
}
