// Package logging - structured audit events for the search pipeline.
// Audit events form an append-only JSONL trail of every query's journey
// through extraction, planning and execution, suitable for offline analysis.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Query lifecycle events
	AuditQueryReceived AuditEventType = "query_received"
	AuditQueryComplete AuditEventType = "query_complete"
	AuditQueryFailed   AuditEventType = "query_failed"

	// Pipeline stage events
	AuditIntentExtracted AuditEventType = "intent_extracted"
	AuditIntentRejected  AuditEventType = "intent_rejected"
	AuditPlanEmitted     AuditEventType = "plan_emitted"
	AuditPlanRejected    AuditEventType = "plan_rejected"

	// Source events
	AuditSourceComplete AuditEventType = "source_complete"
	AuditSourceFailed   AuditEventType = "source_failed"
	AuditSourceTimeout  AuditEventType = "source_timeout"

	// Fusion events
	AuditFusionApplied AuditEventType = "fusion_applied"
)

// AuditEvent is a single structured audit record.
type AuditEvent struct {
	Timestamp int64                  `json:"ts"`
	Type      AuditEventType         `json:"type"`
	RequestID string                 `json:"req"`
	Node      string                 `json:"node,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// AuditTrail writes audit events to a JSONL file. Safe for concurrent use.
// A nil AuditTrail is a valid no-op sink.
type AuditTrail struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewAuditTrail opens (or creates) the audit log under the workspace.
func NewAuditTrail(ws string) (*AuditTrail, error) {
	if ws == "" {
		return nil, fmt.Errorf("workspace path required")
	}
	dir := filepath.Join(ws, ".codiesvibe", "audit")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &AuditTrail{file: file, path: path}, nil
}

// Record appends an event to the trail. Errors are logged, not returned:
// a broken audit sink must never fail a query.
func (a *AuditTrail) Record(eventType AuditEventType, requestID, node string, fields map[string]interface{}) {
	if a == nil {
		return
	}
	event := AuditEvent{
		Timestamp: time.Now().UnixMilli(),
		Type:      eventType,
		RequestID: requestID,
		Node:      node,
		Fields:    fields,
	}
	data, err := json.Marshal(event)
	if err != nil {
		Get(CategoryBoot).Error("audit marshal failed: %v", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return
	}
	if _, err := a.file.Write(append(data, '\n')); err != nil {
		Get(CategoryBoot).Error("audit write failed: %v", err)
	}
}

// Path returns the file the trail writes to.
func (a *AuditTrail) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Close flushes and closes the audit log.
func (a *AuditTrail) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}
