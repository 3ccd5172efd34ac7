package repository

import (
	"context"
	"testing"
	"time"

	"github.com/calima-dev/audixa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *InMemoryAuditLogRepository, logs ...domain.AuditLog) {
	t.Helper()
	for i := range logs {
		require.NoError(t, repo.Insert(context.Background(), &logs[i]))
	}
}

func at(minute int) time.Time {
	return time.Date(2026, 2, 1, 9, minute, 0, 0, time.UTC)
}

func TestInsertStampsCreatedAtWhenUnset(t *testing.T) {
	repo := NewInMemoryAuditLogRepository()

	log := domain.AuditLog{ID: "a", ResourceType: domain.ResourceClient, ResourceID: "c-1"}
	require.NoError(t, repo.Insert(context.Background(), &log))

	assert.False(t, log.CreatedAt.IsZero())
}

func TestInsertPreservesGivenCreatedAt(t *testing.T) {
	repo := NewInMemoryAuditLogRepository()

	given := at(0)
	log := domain.AuditLog{ID: "a", ResourceID: "c-1", CreatedAt: given}
	require.NoError(t, repo.Insert(context.Background(), &log))

	assert.Equal(t, given, log.CreatedAt)
}

func TestListOrderingAndCap(t *testing.T) {
	repo := NewInMemoryAuditLogRepository()

	logs := make([]domain.AuditLog, 0, 120)
	for i := 0; i < 120; i++ {
		logs = append(logs, domain.AuditLog{
			ResourceType: domain.ResourceClient,
			ResourceID:   "c-1",
			Action:       domain.ActionUpdate,
			Status:       domain.StatusSuccess,
			CreatedAt:    at(i),
		})
	}
	seed(t, repo, logs...)

	got, total, err := repo.List(context.Background(), domain.AuditLogFilter{}, 100)
	require.NoError(t, err)

	// The cap applies to the page, never to the total
	assert.Len(t, got, 100)
	assert.Equal(t, int64(120), total)

	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt), "records must be newest first")
	}
}

func TestListFilterComposition(t *testing.T) {
	repo := NewInMemoryAuditLogRepository()

	seed(t, repo,
		domain.AuditLog{ResourceType: domain.ResourceClient, ResourceID: "c-1", Status: domain.StatusSuccess, CreatedAt: at(1)},
		domain.AuditLog{ResourceType: domain.ResourceClient, ResourceID: "c-1", Status: domain.StatusFailed, CreatedAt: at(2)},
		domain.AuditLog{ResourceType: domain.ResourceClient, ResourceID: "c-2", Status: domain.StatusFailed, CreatedAt: at(3)},
		domain.AuditLog{ResourceType: domain.ResourceInvoice, ResourceID: "c-1", Status: domain.StatusFailed, CreatedAt: at(4)},
	)

	got, total, err := repo.List(context.Background(), domain.AuditLogFilter{
		ResourceType: domain.ResourceClient,
		ResourceID:   "c-1",
		Status:       domain.StatusFailed,
	}, 100)
	require.NoError(t, err)

	require.Equal(t, int64(1), total)
	assert.Equal(t, domain.ResourceClient, got[0].ResourceType)
	assert.Equal(t, "c-1", got[0].ResourceID)
	assert.Equal(t, domain.StatusFailed, got[0].Status)
}

func TestListEmptyIntersection(t *testing.T) {
	repo := NewInMemoryAuditLogRepository()

	seed(t, repo, domain.AuditLog{ResourceType: domain.ResourceClient, ResourceID: "c-1", Status: domain.StatusSuccess, CreatedAt: at(1)})

	got, total, err := repo.List(context.Background(), domain.AuditLogFilter{
		ResourceType: domain.ResourceInvoice,
		ResourceID:   "c-1",
	}, 100)
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Equal(t, int64(0), total)
}

func TestListDateRangeInclusive(t *testing.T) {
	repo := NewInMemoryAuditLogRepository()

	start := at(10)
	end := at(20)

	seed(t, repo,
		domain.AuditLog{ResourceID: "c-1", CreatedAt: at(9)},
		domain.AuditLog{ResourceID: "c-2", CreatedAt: start},
		domain.AuditLog{ResourceID: "c-3", CreatedAt: at(15)},
		domain.AuditLog{ResourceID: "c-4", CreatedAt: end},
		domain.AuditLog{ResourceID: "c-5", CreatedAt: at(21)},
	)

	got, total, err := repo.List(context.Background(), domain.AuditLogFilter{Start: &start, End: &end}, 100)
	require.NoError(t, err)

	// Records sitting exactly on either bound are included
	require.Equal(t, int64(3), total)
	ids := []string{got[0].ResourceID, got[1].ResourceID, got[2].ResourceID}
	assert.ElementsMatch(t, []string{"c-2", "c-3", "c-4"}, ids)
}

func TestFindByResourceID(t *testing.T) {
	repo := NewInMemoryAuditLogRepository()

	logs := make([]domain.AuditLog, 0, 150)
	for i := 0; i < 150; i++ {
		logs = append(logs, domain.AuditLog{ResourceType: domain.ResourceInvoice, ResourceID: "inv-1", CreatedAt: at(i)})
	}
	logs = append(logs, domain.AuditLog{ResourceType: domain.ResourceClient, ResourceID: "inv-1", CreatedAt: at(3)})
	seed(t, repo, logs...)

	t.Run("returns full unbounded set", func(t *testing.T) {
		got, err := repo.FindByResourceID(context.Background(), "inv-1", "")
		require.NoError(t, err)
		assert.Len(t, got, 151)
	})

	t.Run("narrows by resource type", func(t *testing.T) {
		got, err := repo.FindByResourceID(context.Background(), "inv-1", domain.ResourceInvoice)
		require.NoError(t, err)
		assert.Len(t, got, 150)

		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt))
		}
	})

	t.Run("unknown id returns empty", func(t *testing.T) {
		got, err := repo.FindByResourceID(context.Background(), "missing", "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
