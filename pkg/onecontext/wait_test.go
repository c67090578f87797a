package onecontext

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastWait = WaitOptions{Interval: time.Millisecond, MaxAttempts: 5}

// TestWaitForProcessing_Completes verifies polling stops once all files complete.
func TestWaitForProcessing_Completes(t *testing.T) {
	svc := newFakeService(t)
	svc.listPages = [][]FileInfo{
		{{Name: "a.pdf", Status: "PROCESSING"}, {Name: "b.pdf", Status: FileStatusCompleted}},
		{{Name: "a.pdf", Status: "PROCESSING"}, {Name: "b.pdf", Status: FileStatusCompleted}},
		{{Name: "a.pdf", Status: FileStatusCompleted}, {Name: "b.pdf", Status: FileStatusCompleted}},
	}
	c := svc.client(t)

	err := c.WaitForProcessing(context.Background(), "docs", fastWait)
	require.NoError(t, err)
	assert.Equal(t, 3, svc.listCalls)
}

// TestWaitForProcessing_Failed verifies a FAILED file ends the wait at once.
func TestWaitForProcessing_Failed(t *testing.T) {
	svc := newFakeService(t)
	svc.listPages = [][]FileInfo{
		{{Name: "a.pdf", Status: FileStatusFailed}, {Name: "b.pdf", Status: "PROCESSING"}},
	}
	c := svc.client(t)

	err := c.WaitForProcessing(context.Background(), "docs", fastWait)

	var failed *ProcessingFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "docs", failed.ContextName)
	require.Len(t, failed.Files, 1)
	assert.Equal(t, "a.pdf", failed.Files[0].Name)
	assert.Equal(t, 1, svc.listCalls)
}

// TestWaitForProcessing_Timeout verifies attempts are bounded.
func TestWaitForProcessing_Timeout(t *testing.T) {
	svc := newFakeService(t)
	svc.listPages = [][]FileInfo{{{Name: "a.pdf", Status: "PROCESSING"}}}
	c := svc.client(t)

	err := c.WaitForProcessing(context.Background(), "docs", fastWait)
	assert.ErrorIs(t, err, ErrProcessingTimeout)
	assert.Equal(t, 5, svc.listCalls)
}

// TestWaitForProcessing_Pages verifies every page is fetched before judging.
func TestWaitForProcessing_Pages(t *testing.T) {
	svc := newFakeService(t)
	svc.listPages = [][]FileInfo{
		{{Name: "a.pdf", Status: FileStatusCompleted}, {Name: "b.pdf", Status: FileStatusCompleted}},
		{{Name: "c.pdf", Status: FileStatusFailed}},
	}
	c := svc.client(t)

	err := c.WaitForProcessing(context.Background(), "docs", WaitOptions{Interval: time.Millisecond, PageSize: 2})

	var failed *ProcessingFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "c.pdf", failed.Files[0].Name)
	assert.Equal(t, float64(2), svc.request("POST", "/api/v5/context/file")["skip"])
}

// TestWaitForProcessing_Cancelled verifies the context bounds the wait.
func TestWaitForProcessing_Cancelled(t *testing.T) {
	svc := newFakeService(t)
	svc.listPages = [][]FileInfo{{{Name: "a.pdf", Status: "PROCESSING"}}}
	c := svc.client(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := c.WaitForProcessing(ctx, "docs", WaitOptions{Interval: 10 * time.Millisecond, MaxAttempts: 1000})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrProcessingTimeout)
}
