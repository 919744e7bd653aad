package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
	"github.com/joseph-ayodele/filings-tracker/internal/entity"
	"github.com/joseph-ayodele/filings-tracker/internal/session"
	"github.com/joseph-ayodele/filings-tracker/internal/stage"
)

// fakeClient answers every requested id with "<stage>:<id>" unless a stage
// has an error configured. gate, when set, blocks calls until released.
type fakeClient struct {
	mu    sync.Mutex
	errs  map[constants.Stage]error
	calls []stage.Request
	gate  func(req stage.Request) <-chan struct{}
}

func (f *fakeClient) Extract(ctx context.Context, req stage.Request) (entity.StageResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate(req):
		case <-ctx.Done():
			return entity.StageResult{}, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.errs[req.Stage]
	f.mu.Unlock()
	if err != nil {
		return entity.StageResult{}, err
	}
	res := entity.NewStageResult(req.Stage)
	for _, n := range req.FileNames {
		res.Values[n] = string(req.Stage) + ":" + n
	}
	return res, nil
}

type fakeStore struct {
	err   error
	saved [][]entity.CombinedRecord
}

func (s *fakeStore) Save(_ context.Context, _ string, records []entity.CombinedRecord) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, records)
	return nil
}

func readySession(t *testing.T, ids ...string) *session.Session {
	t.Helper()
	s := session.New("s1", nil)
	require.NoError(t, s.BeginUpload())
	for _, id := range ids {
		require.NoError(t, s.RegisterUpload(entity.Document{ID: id}, entity.UploadReceipt{SessionID: "req-1"}))
	}
	require.NoError(t, s.FinishUpload(nil))
	return s
}

func TestRunQuerySkipsWithoutSelection(t *testing.T) {
	client := &fakeClient{}
	o := NewOrchestrator(client, nil, nil)
	s := readySession(t, "A.pdf")

	out, err := o.RunQuery(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Empty(t, client.calls)
	assert.Equal(t, constants.PhaseReady, s.Phase())
}

func TestRunQueryJoinsAllStages(t *testing.T) {
	client := &fakeClient{}
	o := NewOrchestrator(client, nil, nil)
	s := readySession(t, "A.pdf", "B.pdf")
	s.ToggleSelection("B.pdf")
	s.ToggleSelection("A.pdf")

	out, err := o.RunQuery(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	assert.Equal(t, "B.pdf", out.Records[0].DocumentID)
	assert.Equal(t, "filing_date:B.pdf", out.Records[0].FilingDate)
	assert.Equal(t, "category:A.pdf", out.Records[1].Category)
	assert.Equal(t, "fine_amount:A.pdf", out.Records[1].FinedAmount)

	require.Len(t, client.calls, 3)
	for _, c := range client.calls {
		assert.Equal(t, "req-1", c.SessionID)
		assert.Equal(t, []string{"B.pdf", "A.pdf"}, c.FileNames)
	}
	assert.Equal(t, constants.PhaseCompleted, s.Phase())
	assert.Equal(t, out.Records, s.Snapshot().Records)
}

func TestRunQueryOneStageFailureFailsAll(t *testing.T) {
	client := &fakeClient{}
	o := NewOrchestrator(client, nil, nil)
	s := readySession(t, "A.pdf", "B.pdf")
	s.SelectAll()

	_, err := o.RunQuery(context.Background(), s)
	require.NoError(t, err)
	require.NotEmpty(t, s.Snapshot().Records)

	client.errs = map[constants.Stage]error{
		constants.StageCategory: common.ErrStageTransport,
	}
	out, err := o.RunQuery(context.Background(), s)
	require.ErrorIs(t, err, common.ErrStageTransport)
	assert.Empty(t, out.Records)
	assert.False(t, out.Stale)

	snap := s.Snapshot()
	assert.Equal(t, constants.PhaseFailed, snap.Phase)
	assert.Empty(t, snap.Records)
	assert.NotEmpty(t, snap.Notice)
}

func TestOverlappingQueriesLatestTokenWins(t *testing.T) {
	first := make(chan struct{})
	released := make(chan struct{})
	close(released)

	client := &fakeClient{}
	client.gate = func(req stage.Request) <-chan struct{} {
		if len(req.FileNames) == 1 {
			return first
		}
		return released
	}
	o := NewOrchestrator(client, nil, nil)
	s := readySession(t, "A.pdf", "B.pdf")
	s.ToggleSelection("A.pdf")

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := o.RunQuery(context.Background(), s)
		done <- result{out, err}
	}()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.calls) == 3
	}, time.Second, 5*time.Millisecond)

	// Changing the selection mid-flight must not leak into the first attempt.
	s.ToggleSelection("B.pdf")
	second, err := o.RunQuery(context.Background(), s)
	require.NoError(t, err)
	require.False(t, second.Stale)
	require.Len(t, second.Records, 2)

	close(first)
	r := <-done
	require.NoError(t, r.err)
	assert.True(t, r.out.Stale)
	assert.Less(t, r.out.Token, second.Token)

	snap := s.Snapshot()
	assert.Equal(t, constants.PhaseCompleted, snap.Phase)
	assert.Equal(t, second.Records, snap.Records)
}

func TestStaleFailureDoesNotClobberNewerResult(t *testing.T) {
	first := make(chan struct{})
	released := make(chan struct{})
	close(released)

	client := &fakeClient{errs: map[constants.Stage]error{}}
	client.gate = func(req stage.Request) <-chan struct{} {
		if len(req.FileNames) == 1 {
			return first
		}
		return released
	}
	o := NewOrchestrator(client, nil, nil)
	s := readySession(t, "A.pdf", "B.pdf")
	s.ToggleSelection("A.pdf")

	done := make(chan error, 1)
	go func() {
		_, err := o.RunQuery(context.Background(), s)
		done <- err
	}()
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.calls) == 3
	}, time.Second, 5*time.Millisecond)

	s.ToggleSelection("B.pdf")
	second, err := o.RunQuery(context.Background(), s)
	require.NoError(t, err)

	client.mu.Lock()
	client.errs[constants.StageFilingDate] = common.ErrMalformedResponse
	client.mu.Unlock()
	close(first)
	require.ErrorIs(t, <-done, common.ErrMalformedResponse)

	snap := s.Snapshot()
	assert.Equal(t, constants.PhaseCompleted, snap.Phase)
	assert.Equal(t, second.Records, snap.Records)
}

func TestStore(t *testing.T) {
	store := &fakeStore{}
	o := NewOrchestrator(&fakeClient{}, store, nil)
	s := readySession(t, "A.pdf")

	require.ErrorIs(t, o.Store(context.Background(), s), common.ErrStoreEmpty)
	assert.Empty(t, store.saved)

	s.SelectAll()
	_, err := o.RunQuery(context.Background(), s)
	require.NoError(t, err)

	store.err = errors.New("disk full")
	err = o.Store(context.Background(), s)
	require.Error(t, err)
	snap := s.Snapshot()
	assert.Equal(t, constants.PhaseStoreFailed, snap.Phase)
	assert.Len(t, snap.Records, 1, "records survive a failed store")

	store.err = nil
	require.NoError(t, o.Store(context.Background(), s))
	assert.Equal(t, constants.PhaseStored, s.Phase())
	require.Len(t, store.saved, 1)
	assert.Equal(t, "A.pdf", store.saved[0][0].DocumentID)
}

func TestStoreAfterLaterUpload(t *testing.T) {
	store := &fakeStore{}
	o := NewOrchestrator(&fakeClient{}, store, nil)
	s := readySession(t, "A.pdf")
	s.SelectAll()
	_, err := o.RunQuery(context.Background(), s)
	require.NoError(t, err)

	require.NoError(t, s.BeginUpload())
	require.NoError(t, s.RegisterUpload(entity.Document{ID: "B.pdf"}, entity.UploadReceipt{SessionID: "req-1"}))
	require.NoError(t, s.FinishUpload(nil))
	assert.Equal(t, constants.PhaseCompleted, s.Phase())

	require.NoError(t, o.Store(context.Background(), s))
	require.Len(t, store.saved, 1)
	require.Len(t, store.saved[0], 1)
	assert.Equal(t, "A.pdf", store.saved[0][0].DocumentID)
	assert.Equal(t, constants.PhaseStored, s.Phase())
}
