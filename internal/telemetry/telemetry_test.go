package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/voxgraph/internal/errors"
)

func TestInitDisabledIsNoOp(t *testing.T) {
	h, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.False(t, h.Enabled())

	// Building an error must not panic even though telemetry is off.
	ee := errors.New(assert.AnError).Component("test").Build()
	assert.NotNil(t, ee)
}

func TestInitEmptyDSNIsNoOp(t *testing.T) {
	h, err := Init(Config{Enabled: true, DSN: ""})
	require.NoError(t, err)
	assert.False(t, h.Enabled())
}

func TestInitWithMockTransportReportsError(t *testing.T) {
	transport := NewMockTransport()

	h, err := Init(Config{
		Enabled:     true,
		DSN:         "https://public@example.com/1",
		Environment: "test",
		Release:     "voxgraph@test",
		Transport:   transport,
	})
	require.NoError(t, err)
	require.True(t, h.Enabled())
	defer h.Close(2 * time.Second)

	ee := errors.New(assert.AnError).
		Component("synthesis").
		Category(errors.CategoryPipeline).
		Kind(errors.Synthesis).
		Build()

	h.reporter.ReportError(ee)

	require.Eventually(t, func() bool {
		return transport.Count() >= 1
	}, time.Second, 10*time.Millisecond)

	assert.True(t, ee.IsReported())
}

func TestConsumerIgnoresNonEnhancedErrors(t *testing.T) {
	c := &consumer{reporter: errors.NewSentryReporter(false)}
	assert.NoError(t, c.ProcessEvent(&fakeErrorEvent{}))
	assert.True(t, c.SupportsBatching())
	assert.Equal(t, "telemetry", c.Name())
}

// fakeErrorEvent satisfies events.ErrorEvent without being *errors.EnhancedError.
type fakeErrorEvent struct{}

func (fakeErrorEvent) GetComponent() string       { return "fake" }
func (fakeErrorEvent) GetCategory() string        { return "fake" }
func (fakeErrorEvent) GetContext() map[string]any { return nil }
func (fakeErrorEvent) GetTimestamp() (t time.Time) { return }
func (fakeErrorEvent) GetError() error             { return nil }
func (fakeErrorEvent) GetMessage() string          { return "" }
func (fakeErrorEvent) IsReported() bool            { return false }
func (fakeErrorEvent) MarkReported()               {}
