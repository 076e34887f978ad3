package service_test

import (
	"context"
	"testing"

	"github.com/punchcard/backend/internal/model"
	"github.com/punchcard/backend/internal/storetest"
	"github.com/stretchr/testify/require"
)

// stubBuilder stands in for the pass archive builder.
type stubBuilder struct {
	err error
}

func (b stubBuilder) Build(member *model.Member, pass *model.WalletPass) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []byte("pkpass:" + pass.SerialNumber), nil
}

func newTestMember(t *testing.T, store *storetest.Memory) *model.Member {
	t.Helper()
	member := &model.Member{FullName: "Ada Lovelace", Tier: "Basic"}
	require.NoError(t, store.CreateMember(context.Background(), member))
	return member
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
