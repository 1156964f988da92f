package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"legitify/internal/identity"
	"legitify/internal/identity/models"
	dErrors "legitify/pkg/domain-errors"
)

// ProfileLocator resolves the connection profile path for an organization.
type ProfileLocator interface {
	ConnectionProfile(org string) (string, error)
}

// LayoutProfiles locates connection profiles in a crypto-config tree.
type LayoutProfiles struct {
	Layout identity.Layout
}

func (p LayoutProfiles) ConnectionProfile(org string) (string, error) {
	if org == "" {
		return "", fmt.Errorf("organization required")
	}
	return p.Layout.ConnectionProfile(models.Org{Name: org}), nil
}

// FabricConnector opens gateway connections with identities from the wallet registry.
type FabricConnector struct {
	registry  *identity.Registry
	profiles  ProfileLocator
	channel   string
	chaincode string
	timeout   time.Duration
	tracer    trace.Tracer
	logger    *slog.Logger
}

type FabricOption func(*FabricConnector)

func WithChannel(channel string) FabricOption {
	return func(c *FabricConnector) {
		if channel != "" {
			c.channel = channel
		}
	}
}

func WithChaincode(chaincode string) FabricOption {
	return func(c *FabricConnector) {
		if chaincode != "" {
			c.chaincode = chaincode
		}
	}
}

func WithCommitTimeout(timeout time.Duration) FabricOption {
	return func(c *FabricConnector) {
		c.timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) FabricOption {
	return func(c *FabricConnector) {
		c.logger = logger
	}
}

func NewFabricConnector(registry *identity.Registry, profiles ProfileLocator, opts ...FabricOption) *FabricConnector {
	c := &FabricConnector{
		registry:  registry,
		profiles:  profiles,
		channel:   DefaultChannel,
		chaincode: DefaultChaincode,
		timeout:   30 * time.Second,
		tracer:    otel.Tracer("legitify/ledger"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens a gateway session as label in org.
// Missing identities fail with CodeEnrollment; network failures with CodeLedgerUnavailable.
func (c *FabricConnector) Connect(ctx context.Context, label, org string) (*Session, error) {
	parent := trace.SpanContextFromContext(ctx)
	ctx, span := c.tracer.Start(ctx, "ledger.connect", trace.WithAttributes(
		attribute.String("ledger.org", org),
		attribute.String("ledger.channel", c.channel),
	))
	defer span.End()

	wallet, err := c.registry.Wallet(org)
	if err != nil {
		return nil, c.fail(span, err)
	}
	if !wallet.Exists(label) {
		return nil, c.fail(span, dErrors.New(dErrors.CodeEnrollment, fmt.Sprintf("no ledger identity for %s in %s", label, org)))
	}

	profile, err := c.profiles.ConnectionProfile(org)
	if err != nil {
		return nil, c.fail(span, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "connection profile unavailable"))
	}
	if _, err := os.Stat(profile); err != nil {
		return nil, c.fail(span, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "connection profile unavailable"))
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(config.FromFile(profile)),
		gateway.WithIdentity(wallet.SDK(), label),
		gateway.WithTimeout(c.timeout),
	)
	if err != nil {
		return nil, c.fail(span, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "failed to connect to ledger gateway"))
	}

	network, err := gw.GetNetwork(c.channel)
	if err != nil {
		gw.Close()
		return nil, c.fail(span, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, fmt.Sprintf("channel %s unavailable", c.channel)))
	}

	contract := &tracedContract{
		inner:  network.GetContract(c.chaincode),
		parent: parent,
		tracer: c.tracer,
	}
	c.logger.DebugContext(ctx, "ledger session opened", "org", org, "label", label)
	return NewSession(contract, gw.Close), nil
}

func (c *FabricConnector) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// tracedContract records a span per chaincode invocation as a child of the
// span that was active when the session was opened.
type tracedContract struct {
	inner  Contract
	parent trace.SpanContext
	tracer trace.Tracer
}

func (t *tracedContract) SubmitTransaction(name string, args ...string) ([]byte, error) {
	return t.invoke("ledger.submit", name, func() ([]byte, error) {
		return t.inner.SubmitTransaction(name, args...)
	})
}

func (t *tracedContract) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	return t.invoke("ledger.evaluate", name, func() ([]byte, error) {
		return t.inner.EvaluateTransaction(name, args...)
	})
}

func (t *tracedContract) invoke(spanName, fn string, call func() ([]byte, error)) ([]byte, error) {
	parentCtx := trace.ContextWithSpanContext(context.Background(), t.parent)
	_, span := t.tracer.Start(parentCtx, spanName, trace.WithAttributes(attribute.String("ledger.function", fn)))
	defer span.End()

	out, err := call()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}
