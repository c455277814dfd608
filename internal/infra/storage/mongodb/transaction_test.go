package mongodb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type labeledError struct {
	msg    string
	labels []string
}

func (e *labeledError) Error() string { return e.msg }

func (e *labeledError) HasErrorLabel(label string) bool {
	for _, l := range e.labels {
		if l == label {
			return true
		}
	}
	return false
}

type fakeCommitter struct {
	results []error
	calls   int
}

func (f *fakeCommitter) CommitTransaction(context.Context) error {
	err := f.results[f.calls]
	f.calls++
	return err
}

func TestCommitWithRetrySucceedsFirstTry(t *testing.T) {
	c := &fakeCommitter{results: []error{nil}}

	require.NoError(t, commitWithRetry(context.Background(), c))
	assert.Equal(t, 1, c.calls)
}

func TestCommitWithRetryRetriesAmbiguousOutcome(t *testing.T) {
	ambiguous := &labeledError{msg: "connection reset", labels: []string{unknownCommitLabel}}
	c := &fakeCommitter{results: []error{ambiguous, ambiguous, nil}}

	require.NoError(t, commitWithRetry(context.Background(), c))
	assert.Equal(t, 3, c.calls)
}

func TestCommitWithRetryStopsOnDefiniteError(t *testing.T) {
	definite := &labeledError{msg: "write conflict", labels: []string{"TransientTransactionError"}}
	c := &fakeCommitter{results: []error{definite}}

	err := commitWithRetry(context.Background(), c)
	require.Error(t, err)
	assert.ErrorContains(t, err, "write conflict")
	assert.Equal(t, 1, c.calls)
}

func TestCommitWithRetryStopsOnPlainError(t *testing.T) {
	c := &fakeCommitter{results: []error{errors.New("not a command error")}}

	err := commitWithRetry(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, 1, c.calls)
}

func TestCommitWithRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ambiguous := &labeledError{msg: "primary stepped down", labels: []string{unknownCommitLabel}}
	c := &fakeCommitter{results: []error{ambiguous}}

	err := commitWithRetry(ctx, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, c.calls)
}
