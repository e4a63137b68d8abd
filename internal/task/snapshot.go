package task

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Snapshot is the compact per-task record persisted between polls. Two
// snapshots with equal Hash values are treated as identical; the hash is the
// sole equality test before deeper diffing.
type Snapshot struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	Completed    bool        `json:"completed"`
	CompletedAt  string      `json:"completedAt,omitempty"`
	SnoozeUntil  string      `json:"snoozeUntil,omitempty"`
	DueDate      string      `json:"dueDate,omitempty"`
	TimeEstimate int         `json:"timeEstimate,omitempty"`
	HorizonType  HorizonType `json:"horizonType,omitempty"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Hash         string      `json:"hash"`
}

// NewSnapshot reduces a task to its stored form, stamping the observation
// time and the fingerprint.
func NewSnapshot(t Task, observedAt time.Time) Snapshot {
	return Snapshot{
		ID:           t.ID,
		Text:         t.Text,
		Completed:    t.Completed,
		CompletedAt:  t.CompletedAt,
		SnoozeUntil:  t.SnoozeUntil,
		DueDate:      t.DueDate,
		TimeEstimate: t.TimeEstimate,
		HorizonType:  t.Horizon(),
		UpdatedAt:    observedAt,
		Hash:         Fingerprint(t),
	}
}

// fingerprintFields enumerates the canonical values hashed into a task
// fingerprint. This list is the fingerprint contract: order matters, and
// fields outside it (updatedAt and other unrelated metadata) must never
// perturb the hash. Append-only.
func fingerprintFields(t Task) []string {
	cats := append([]string(nil), t.CategoryIDs...)
	sort.Strings(cats)

	var horizon, relativeTo string
	if t.TimeHorizon != nil {
		horizon = string(t.TimeHorizon.Type)
		relativeTo = t.TimeHorizon.RelativeTo
	}

	return []string{
		t.Text,
		strconv.FormatBool(t.Completed),
		t.CompletedAt,
		t.SnoozeUntil,
		t.DueDate,
		strconv.Itoa(t.TimeEstimate),
		t.Notes,
		strings.Join(cats, ","),
		horizon,
		relativeTo,
	}
}

// Fingerprint computes a deterministic SHA-256 hex digest over the task's
// semantically significant fields. Structurally identical tasks always yield
// the same fingerprint.
func Fingerprint(t Task) string {
	h := sha256.New()
	for i, field := range fingerprintFields(t) {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
