package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"legitify/internal/identity"
	"legitify/internal/identity/models"
	"legitify/internal/identity/store"
	"legitify/internal/ledger"
	"legitify/internal/ledger/mocks"
	dErrors "legitify/pkg/domain-errors"
)

func readerWith(t *testing.T, label, org string) (*ledger.Reader, *mocks.MockContract, *int) {
	t.Helper()
	ctrl := gomock.NewController(t)
	contract := mocks.NewMockContract(ctrl)
	connector := mocks.NewMockConnector(ctrl)
	closed := 0
	connector.EXPECT().Connect(gomock.Any(), label, org).
		Return(ledger.NewSession(contract, func() { closed++ }), nil)
	return ledger.NewReader(connector), contract, &closed
}

func TestReaderReadCredential(t *testing.T) {
	r, contract, closed := readerWith(t, "holder-1", "orgindividual")
	contract.EXPECT().EvaluateTransaction(ledger.FnReadCredential, "doc-1").
		Return([]byte(`{"docId":"doc-1","docHash":"abc","holderId":"holder-1","accepted":true}`), nil)

	rec, err := r.ReadCredential(context.Background(), "holder-1", "orgindividual", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "abc", rec.DocHash)
	assert.True(t, rec.Accepted)
	assert.Equal(t, 1, *closed)
}

func TestReaderReadCredentialMalformed(t *testing.T) {
	r, contract, _ := readerWith(t, "holder-1", "orgindividual")
	contract.EXPECT().EvaluateTransaction(ledger.FnReadCredential, "doc-1").Return([]byte("not json"), nil)

	_, err := r.ReadCredential(context.Background(), "holder-1", "orgindividual", "doc-1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))
}

func TestReaderVerifyHash(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		r, contract, closed := readerWith(t, "v-1", "orgemployer")
		contract.EXPECT().EvaluateTransaction(ledger.FnVerifyHash, "doc-2", "abc").Return([]byte("true"), nil)

		ok, err := r.VerifyHash(context.Background(), "v-1", "orgemployer", "doc-2", "abc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, *closed)
	})

	t.Run("mismatch", func(t *testing.T) {
		r, contract, _ := readerWith(t, "v-1", "orgemployer")
		contract.EXPECT().EvaluateTransaction(ledger.FnVerifyHash, "doc-2", "abc").Return([]byte("false\n"), nil)

		ok, err := r.VerifyHash(context.Background(), "v-1", "orgemployer", "doc-2", "abc")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("peer error", func(t *testing.T) {
		r, contract, closed := readerWith(t, "v-1", "orgemployer")
		contract.EXPECT().EvaluateTransaction(ledger.FnVerifyHash, "doc-2", "abc").
			Return(nil, errors.New("credential doc-2 not found"))

		_, err := r.VerifyHash(context.Background(), "v-1", "orgemployer", "doc-2", "abc")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerUnavailable))
		assert.Equal(t, 1, *closed)
	})
}

func TestFabricConnectorChecksIdentityAndProfile(t *testing.T) {
	ctx := context.Background()
	reg, err := identity.NewRegistry(ctx, store.NewInMemory(), models.DefaultOrgs())
	require.NoError(t, err)
	connector := ledger.NewFabricConnector(reg,
		ledger.LayoutProfiles{Layout: identity.Layout{Root: t.TempDir()}},
		ledger.WithChannel("testchannel"),
	)

	_, err = connector.Connect(ctx, "nobody", "orgindividual")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEnrollment), "identity not in the wallet")

	_, err = connector.Connect(ctx, "nobody", "orgnowhere")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEnrollment), "unknown organization")

	w, err := reg.Wallet("orgindividual")
	require.NoError(t, err)
	ident, err := models.NewIdentity("holder-1", models.OrgIndividual, "CERT", "KEY", time.Now())
	require.NoError(t, err)
	require.NoError(t, w.Put(ctx, ident))

	_, err = connector.Connect(ctx, "holder-1", "orgindividual")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLedgerUnavailable), "connection profile missing")
}
