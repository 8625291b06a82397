package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/autodev/internal/progress"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProber is a mock implementation of probe.Prober.
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Status(ctx context.Context, url string) (int, error) {
	args := m.Called(ctx, url)
	return args.Int(0), args.Error(1)
}

func recordWithURLs(t *testing.T, urls ...string) *project.Record {
	t.Helper()
	rec := newRecord(t, "A weather site")
	require.NoError(t, rec.SetScope(project.ScopeDecision{IsExternalURLsRequired: true}))
	require.NoError(t, rec.SetExternalURLs(urls))
	return rec
}

func TestURLValidator_ExcludesNon200(t *testing.T) {
	prober := new(MockProber)
	prober.On("Status", mock.Anything, "https://a.example").Return(200, nil)
	prober.On("Status", mock.Anything, "https://b.example").Return(404, nil)

	rec := recordWithURLs(t, "https://a.example", "https://b.example")
	log := &eventLog{}
	v := NewURLValidator(prober, WithProgress(log.callback()))

	require.NoError(t, v.Execute(context.Background(), rec))

	urls, _ := rec.ExternalURLs()
	assert.Equal(t, []string{"https://a.example"}, urls)
	assert.Equal(t, StateFinished, v.State())
	assert.Equal(t, 2, log.count(progress.KindUnitTest))
	assert.Equal(t, 1, log.count(progress.KindIssue))
	assert.Equal(t, URLValidatorPosition, log.events[0].Position)
}

func TestURLValidator_PreservesOrder(t *testing.T) {
	prober := new(MockProber)
	prober.On("Status", mock.Anything, "https://a.example").Return(200, nil)
	prober.On("Status", mock.Anything, "https://b.example").Return(0, errors.New("context deadline exceeded"))
	prober.On("Status", mock.Anything, "https://c.example").Return(200, nil)
	prober.On("Status", mock.Anything, "https://d.example").Return(500, nil)
	prober.On("Status", mock.Anything, "https://e.example").Return(200, nil)

	rec := recordWithURLs(t, "https://a.example", "https://b.example", "https://c.example", "https://d.example", "https://e.example")
	require.NoError(t, NewURLValidator(prober).Execute(context.Background(), rec))

	urls, _ := rec.ExternalURLs()
	assert.Equal(t, []string{"https://a.example", "https://c.example", "https://e.example"}, urls)
}

func TestURLValidator_IdempotentOnFilteredList(t *testing.T) {
	prober := new(MockProber)
	prober.On("Status", mock.Anything, mock.Anything).Return(200, nil)

	rec := recordWithURLs(t, "https://a.example", "https://c.example")
	require.NoError(t, NewURLValidator(prober).Execute(context.Background(), rec))
	first, _ := rec.ExternalURLs()

	require.NoError(t, NewURLValidator(prober).Execute(context.Background(), rec))
	second, _ := rec.ExternalURLs()

	assert.Equal(t, []string{"https://a.example", "https://c.example"}, first)
	assert.Equal(t, first, second)
}

func TestURLValidator_AllExcluded(t *testing.T) {
	prober := new(MockProber)
	prober.On("Status", mock.Anything, mock.Anything).Return(503, nil)

	rec := recordWithURLs(t, "https://a.example")
	require.NoError(t, NewURLValidator(prober).Execute(context.Background(), rec))

	urls, ok := rec.ExternalURLs()
	assert.True(t, ok)
	assert.Empty(t, urls)
}

func TestURLValidator_NoURLsIsNoOp(t *testing.T) {
	prober := new(MockProber)
	rec := newRecord(t, "Build a todo app with login")

	v := NewURLValidator(prober)
	require.NoError(t, v.Execute(context.Background(), rec))

	assert.Equal(t, StateFinished, v.State())
	_, ok := rec.ExternalURLs()
	assert.False(t, ok)
	prober.AssertNotCalled(t, "Status", mock.Anything, mock.Anything)
}

func TestURLValidator_CancelledContextKeepsList(t *testing.T) {
	prober := new(MockProber)
	ctx, cancel := context.WithCancel(context.Background())
	prober.On("Status", mock.Anything, "https://a.example").
		Run(func(mock.Arguments) { cancel() }).
		Return(0, context.Canceled)

	rec := recordWithURLs(t, "https://a.example", "https://b.example")
	err := NewURLValidator(prober).Execute(ctx, rec)

	require.ErrorIs(t, err, context.Canceled)
	urls, _ := rec.ExternalURLs()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)
}
