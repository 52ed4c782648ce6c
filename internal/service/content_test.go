package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopnotify/internal/model"
)

func TestContentAllocator_Allocate(t *testing.T) {
	tests := []struct {
		name     string
		oneTime  bool
		contents []model.Content
		wantID   int64
		wantUsed bool
		wantErr  error
	}{
		{
			name:    "Given a one-time group When allocating Then the lowest unused row is claimed and marked used",
			oneTime: true,
			contents: []model.Content{
				{ID: 1, ContentGroupID: 10, Used: true},
				{ID: 2, ContentGroupID: 10},
				{ID: 3, ContentGroupID: 10},
			},
			wantID:   2,
			wantUsed: true,
		},
		{
			name:    "Given a one-time group with everything used When allocating Then no content is available",
			oneTime: true,
			contents: []model.Content{
				{ID: 1, ContentGroupID: 10, Used: true},
			},
			wantErr: ErrNoContentAvailable,
		},
		{
			name:    "Given a reusable group with everything used When allocating Then a used row is reused",
			oneTime: false,
			contents: []model.Content{
				{ID: 1, ContentGroupID: 10, Used: true},
			},
			wantID:   1,
			wantUsed: true,
		},
		{
			name:    "Given a reusable group with an unused row When allocating Then the unused row is preferred and stays unused",
			oneTime: false,
			contents: []model.Content{
				{ID: 1, ContentGroupID: 10, Used: true},
				{ID: 2, ContentGroupID: 10},
			},
			wantID: 2,
		},
		{
			name:    "Given only deleted rows When allocating Then no content is available",
			oneTime: false,
			contents: []model.Content{
				{ID: 1, ContentGroupID: 10, DeletedAt: sql.NullTime{Valid: true}},
			},
			wantErr: ErrNoContentAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			for _, c := range tt.contents {
				env.db.addContent(c)
			}

			got, err := env.contents.Allocate(context.Background(), &model.ContentGroup{ID: 10, OneTime: tt.oneTime})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)

			stored, err := memContents{env.db}.GetByID(context.Background(), tt.wantID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsed, stored.Used)
		})
	}
}

func TestContentAllocator_Release(t *testing.T) {
	env := newTestEnv(t)
	env.db.addContent(model.Content{ID: 1, ContentGroupID: 10, Used: true})
	env.db.addContent(model.Content{ID: 2, ContentGroupID: 10, Used: true})

	require.NoError(t, env.contents.Release(context.Background(), []int64{2}))

	s := env.db.snapshot()
	assert.True(t, s.contents[0].Used)
	assert.False(t, s.contents[1].Used)
}
