// ABOUTME: Tests for the lifecycle state machine
// ABOUTME: Round trips, conflicts, label sequences and unknown outcomes

package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/repository"
)

type spyRecorder struct {
	outcomes []string
}

func (r *spyRecorder) RecordLifecycle(op, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, op+":"+outcome)
}

func setupTestController(t *testing.T) (*Controller, *repository.Memory, repository.NodeRef) {
	t.Helper()
	repo := repository.NewMemory("alice")
	doc, err := repo.AddDocument(repository.SharedRoot, "contract.docx", []byte("draft"), true, nil)
	require.NoError(t, err)
	return NewController(repo, "alice"), repo, doc.ID
}

func TestCheckoutCheckinMinor(t *testing.T) {
	c, repo, ref := setupTestController(t)
	ctx := context.Background()

	co, err := c.Checkout(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "alice", co.Owner)
	assert.Equal(t, ref, co.WorkingCopy)

	state, _, err := c.State(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, CheckedOutByCaller, state)

	rec, err := c.Checkin(ctx, ref, CheckinInput{Comment: "c"})
	require.NoError(t, err)
	assert.Equal(t, "0.1", rec.Label)
	assert.Equal(t, "c", rec.Comment)
	assert.False(t, rec.Major)

	state, _, err = c.State(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, Available, state)
	assert.Len(t, repo.History().List(ref.String()), 1)
}

func TestCheckoutCancelLeavesNoVersion(t *testing.T) {
	c, repo, ref := setupTestController(t)
	ctx := context.Background()

	_, err := c.Checkout(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, c.CancelCheckout(ctx, ref))

	state, _, err := c.State(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, Available, state)
	assert.Empty(t, repo.History().List(ref.String()))
	assert.Equal(t, 0, repo.Calls("create_version"))
}

func TestCancelTwice(t *testing.T) {
	c, _, ref := setupTestController(t)
	ctx := context.Background()

	_, err := c.Checkout(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, c.CancelCheckout(ctx, ref))

	err = c.CancelCheckout(ctx, ref)
	assert.True(t, errors.Is(err, faults.ErrNotCheckedOut))
}

func TestDoubleCheckout(t *testing.T) {
	c, _, ref := setupTestController(t)
	ctx := context.Background()

	_, err := c.Checkout(ctx, ref)
	require.NoError(t, err)

	_, err = c.Checkout(ctx, ref)
	assert.True(t, errors.Is(err, faults.ErrAlreadyCheckedOut))
}

func TestLabelSequence(t *testing.T) {
	c, _, ref := setupTestController(t)
	ctx := context.Background()

	var labels []string
	for _, major := range []bool{false, false, false, true} {
		_, err := c.Checkout(ctx, ref)
		require.NoError(t, err)
		rec, err := c.Checkin(ctx, ref, CheckinInput{Major: major})
		require.NoError(t, err)
		labels = append(labels, rec.Label)
	}
	assert.Equal(t, []string{"0.1", "0.2", "0.3", "1.0"}, labels)
}

func TestCheckinWithoutCheckout(t *testing.T) {
	c, repo, ref := setupTestController(t)

	_, err := c.Checkin(context.Background(), ref, CheckinInput{})
	assert.True(t, errors.Is(err, faults.ErrNotCheckedOut))
	assert.Equal(t, 0, repo.Calls("create_version"))
}

func TestCheckinNonVersionable(t *testing.T) {
	repo := repository.NewMemory("alice")
	doc, err := repo.AddDocument(repository.SharedRoot, "plain.txt", nil, false, nil)
	require.NoError(t, err)
	c := NewController(repo, "alice")
	ctx := context.Background()

	_, err = c.Checkout(ctx, doc.ID)
	require.NoError(t, err)
	_, err = c.Checkin(ctx, doc.ID, CheckinInput{})
	assert.True(t, errors.Is(err, faults.ErrVersioningUnsupported))
}

func TestForeignLock(t *testing.T) {
	c, repo, ref := setupTestController(t)
	require.NoError(t, repo.ForceLock(ref, "bob"))
	ctx := context.Background()

	_, err := c.Checkout(ctx, ref)
	require.True(t, errors.Is(err, faults.ErrAlreadyCheckedOut))
	var fe *faults.Error
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Details, "bob")
	assert.Equal(t, 0, repo.Calls("lock"))

	err = c.CancelCheckout(ctx, ref)
	assert.True(t, errors.Is(err, faults.ErrNotCheckedOut))
	assert.Equal(t, 0, repo.Calls("unlock"))

	_, err = c.Checkin(ctx, ref, CheckinInput{})
	assert.True(t, errors.Is(err, faults.ErrNotCheckedOut))
}

func TestOwnerlessLockCountsAsCaller(t *testing.T) {
	c, repo, ref := setupTestController(t)
	require.NoError(t, repo.ForceLock(ref, ""))

	state, _, err := c.State(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, CheckedOutByCaller, state)
}

func TestLockRaceReportsAlreadyCheckedOut(t *testing.T) {
	c, repo, ref := setupTestController(t)
	repo.FailNext("lock", repository.ErrLocked)

	_, err := c.Checkout(context.Background(), ref)
	assert.True(t, errors.Is(err, faults.ErrAlreadyCheckedOut))
}

func TestCheckoutMissingNode(t *testing.T) {
	c, _, _ := setupTestController(t)

	_, err := c.Checkout(context.Background(), "nope")
	assert.True(t, errors.Is(err, faults.ErrNodeNotFound))
}

func TestCheckoutFolderRejected(t *testing.T) {
	c, _, _ := setupTestController(t)

	_, err := c.Checkout(context.Background(), repository.SharedRoot)
	assert.True(t, errors.Is(err, faults.ErrValidation))
}

func TestTimeoutDuringLockIsIndeterminate(t *testing.T) {
	c, repo, ref := setupTestController(t)
	repo.FailNext("lock", context.DeadlineExceeded)

	_, err := c.Checkout(context.Background(), ref)
	require.True(t, errors.Is(err, faults.ErrIndeterminate))
	assert.True(t, strings.HasPrefix(err.Error(), faults.IndeterminatePrefix))
}

func TestTimeoutDuringCreateVersionIsIndeterminate(t *testing.T) {
	c, repo, ref := setupTestController(t)
	ctx := context.Background()
	_, err := c.Checkout(ctx, ref)
	require.NoError(t, err)

	repo.FailNext("create_version", repository.ErrTimeout)
	_, err = c.Checkin(ctx, ref, CheckinInput{})
	assert.True(t, errors.Is(err, faults.ErrIndeterminate))
	assert.False(t, errors.Is(err, faults.ErrNotCheckedOut))
}

func TestUnknownVersionOutcomeKeepsLock(t *testing.T) {
	c, repo, ref := setupTestController(t)
	ctx := context.Background()
	_, err := c.Checkout(ctx, ref)
	require.NoError(t, err)

	repo.FailNext("create_version", repository.ErrOutcomeUnknown)
	_, err = c.Checkin(ctx, ref, CheckinInput{})
	require.True(t, errors.Is(err, faults.ErrIndeterminate))
	assert.False(t, errors.Is(err, faults.ErrVersioningUnsupported))
	assert.True(t, faults.RequiresRequery(err))

	state, _, err := c.State(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, CheckedOutByCaller, state)
}

func TestUnlockFailureAfterVersionIsIndeterminate(t *testing.T) {
	c, repo, ref := setupTestController(t)
	ctx := context.Background()
	_, err := c.Checkout(ctx, ref)
	require.NoError(t, err)

	repo.FailNext("unlock", repository.ErrUnavailable)
	_, err = c.Checkin(ctx, ref, CheckinInput{})
	require.True(t, errors.Is(err, faults.ErrIndeterminate))
	var fe *faults.Error
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe.Details, "0.1")
}

func TestCancelledContextIsIndeterminate(t *testing.T) {
	c, _, ref := setupTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.CancelCheckout(ctx, ref)
	assert.True(t, errors.Is(err, faults.ErrIndeterminate))
}

func TestRecorderSeesOutcomes(t *testing.T) {
	repo := repository.NewMemory("alice")
	doc, err := repo.AddDocument(repository.SharedRoot, "a.txt", nil, true, nil)
	require.NoError(t, err)
	rec := &spyRecorder{}
	c := NewController(repo, "alice", WithRecorder(rec))
	ctx := context.Background()

	_, err = c.Checkout(ctx, doc.ID)
	require.NoError(t, err)
	_, err = c.Checkout(ctx, doc.ID)
	require.Error(t, err)

	assert.Equal(t, []string{"checkout:success", "checkout:already_checked_out"}, rec.outcomes)
}

func TestConcurrentCheckoutSingleWinner(t *testing.T) {
	c, _, ref := setupTestController(t)
	ctx := context.Background()

	const workers = 8
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := c.Checkout(ctx, ref)
			results <- err
		}()
	}
	wins := 0
	for i := 0; i < workers; i++ {
		err := <-results
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, faults.ErrAlreadyCheckedOut), "unexpected %v", err)
	}
	assert.Equal(t, 1, wins)
}
