package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingTracer struct {
	noop.Tracer
	names   []string
	parents []trace.SpanContext
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	r.names = append(r.names, name)
	r.parents = append(r.parents, trace.SpanContextFromContext(ctx))
	return r.Tracer.Start(ctx, name, opts...)
}

type stubContract struct {
	err error
}

func (c stubContract) SubmitTransaction(string, ...string) ([]byte, error) {
	return nil, c.err
}

func (c stubContract) EvaluateTransaction(string, ...string) ([]byte, error) {
	return []byte("true"), c.err
}

func TestTracedContractParentsSpansOnSessionCaller(t *testing.T) {
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
	})
	tracer := &recordingTracer{}
	contract := &tracedContract{inner: stubContract{}, parent: parent, tracer: tracer}

	out, err := contract.EvaluateTransaction(FnVerifyHash, "doc-1", "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("true"), out)

	failing := &tracedContract{inner: stubContract{err: errors.New("endorsement failure")}, parent: parent, tracer: tracer}
	_, err = failing.SubmitTransaction(FnAcceptCredential, "doc-1")
	require.Error(t, err)

	assert.Equal(t, []string{"ledger.evaluate", "ledger.submit"}, tracer.names)
	for _, got := range tracer.parents {
		assert.Equal(t, parent.TraceID(), got.TraceID())
		assert.Equal(t, parent.SpanID(), got.SpanID())
	}
}
