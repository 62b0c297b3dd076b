package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/lingo_go_server/internal/model"
	"github.com/qs3c/lingo_go_server/internal/testutil"
)

func TestJobRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)
	session := testutil.TestSession(t, db, user.ID, plan.ID)

	job := testutil.TestJob(t, db, user.ID, session.ID, plan.ID, model.JobQueued)
	assert.NotZero(t, job.ID)

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, found.SessionID)
	assert.Equal(t, model.JobQueued, found.Status)
}

func TestJobRepository_GetBySessionID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)
	session := testutil.TestSession(t, db, user.ID, plan.ID)
	testutil.TestJob(t, db, user.ID, session.ID, plan.ID, model.JobCompleted)

	found, err := repo.GetBySessionID(session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, found.Status)

	_, err = repo.GetBySessionID("missing-session")
	assert.Error(t, err)
}

func TestJobRepository_UpdateStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	user := testutil.TestUser(t, db)
	plan := testutil.TestPlan(t, db, user.ID)
	session := testutil.TestSession(t, db, user.ID, plan.ID)
	job := testutil.TestJob(t, db, user.ID, session.ID, plan.ID, model.JobQueued)

	require.NoError(t, repo.UpdateStatus(job.ID, model.JobProcessing))

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, found.Status)
}
