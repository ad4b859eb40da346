package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain"
)

// Sort fields accepted by List. Anything else falls back to SortByCreatedAt
// during normalization, so the SQL layer only ever sees whitelisted columns.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByDueDate   SortField = "due_date"
	SortByPriority  SortField = "priority"
)

// SortDirection is the order applied to the sort field.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParentScope restricts a listing to one level of the task tree.
type ParentScope string

const (
	// ScopeAll places no hierarchy restriction on the listing.
	ScopeAll ParentScope = ""
	// ScopeRoots restricts the listing to tasks without a parent.
	ScopeRoots ParentScope = "roots"
	// ScopeChildren restricts the listing to direct children of ParentID.
	ScopeChildren ParentScope = "children"
)

// Pagination bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// FilterSpec describes one listing: predicate filters, hierarchy scope,
// free-text search, sorting and pagination. Soft-deleted rows are excluded
// unless IncludeDeleted is set; there is no implicit default scope.
type FilterSpec struct {
	Statuses       []domain.TaskStatus
	Priorities     []domain.TaskPriority
	ParentScope    ParentScope
	ParentID       *uuid.UUID
	DueAfter       *time.Time
	DueBefore      *time.Time
	Search         string
	IncludeDeleted bool
	SortBy         SortField
	SortDir        SortDirection
	Limit          int
	Offset         int
}

// Normalized returns a canonical copy of the spec: defaults applied, filter
// slices sorted and de-duplicated, pagination clamped. Two specs describing
// the same listing normalize to the same value, which is what makes the
// fingerprint usable as a cache key.
func (f FilterSpec) Normalized() FilterSpec {
	n := f

	n.Statuses = dedupSorted(f.Statuses)
	n.Priorities = dedupSorted(f.Priorities)

	switch n.SortBy {
	case SortByCreatedAt, SortByUpdatedAt, SortByDueDate, SortByPriority:
	default:
		n.SortBy = SortByCreatedAt
	}
	if n.SortDir != SortAsc {
		n.SortDir = SortDesc
	}

	if n.Limit <= 0 {
		n.Limit = DefaultLimit
	}
	if n.Limit > MaxLimit {
		n.Limit = MaxLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}

	if n.ParentScope != ScopeChildren {
		n.ParentID = nil
	}
	n.Search = strings.TrimSpace(f.Search)

	return n
}

// Fingerprint returns a deterministic hash of the normalized spec, suitable
// as a cache-list key component. Equal listings always hash equally; the
// canonical field order below must stay stable across releases or every
// cached list is orphaned on deploy.
func (f FilterSpec) Fingerprint() string {
	n := f.Normalized()

	var b strings.Builder
	b.WriteString("st=")
	for i, s := range n.Statuses {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(s))
	}
	b.WriteString(";pr=")
	for i, p := range n.Priorities {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(p))
	}
	b.WriteString(";scope=")
	b.WriteString(string(n.ParentScope))
	b.WriteString(";parent=")
	if n.ParentID != nil {
		b.WriteString(n.ParentID.String())
	}
	b.WriteString(";after=")
	if n.DueAfter != nil {
		b.WriteString(strconv.FormatInt(n.DueAfter.UTC().UnixNano(), 10))
	}
	b.WriteString(";before=")
	if n.DueBefore != nil {
		b.WriteString(strconv.FormatInt(n.DueBefore.UTC().UnixNano(), 10))
	}
	b.WriteString(";q=")
	b.WriteString(n.Search)
	b.WriteString(";del=")
	b.WriteString(strconv.FormatBool(n.IncludeDeleted))
	b.WriteString(";sort=")
	b.WriteString(string(n.SortBy))
	b.WriteByte(':')
	b.WriteString(string(n.SortDir))
	b.WriteString(";limit=")
	b.WriteString(strconv.Itoa(n.Limit))
	b.WriteString(";offset=")
	b.WriteString(strconv.Itoa(n.Offset))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

func dedupSorted[T ~string](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
