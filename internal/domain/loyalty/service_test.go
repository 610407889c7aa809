package loyalty

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fakeRepo struct {
	balances     map[string]int64
	transactions []*Transaction
	tiers        map[string]Tier

	addPointsErr error
	saveTxErr    error
	setTierErr   error
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		balances: make(map[string]int64),
		tiers:    make(map[string]Tier),
	}
}

func (r *fakeRepo) AddPoints(_ context.Context, customerID string, points int64) (int64, error) {
	if r.addPointsErr != nil {
		return 0, r.addPointsErr
	}
	r.balances[customerID] += points
	return r.balances[customerID], nil
}

func (r *fakeRepo) SaveTransaction(_ context.Context, tx *Transaction) error {
	if r.saveTxErr != nil {
		return r.saveTxErr
	}
	cp := *tx
	r.transactions = append(r.transactions, &cp)
	return nil
}

func (r *fakeRepo) SetCustomerTier(_ context.Context, customerID string, tier Tier) error {
	if r.setTierErr != nil {
		return r.setTierErr
	}
	r.tiers[customerID] = tier
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAwardPoints(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testLogger(), 1)

	award, err := svc.AwardPoints(context.Background(), "c1", "o1", 250.75)
	require.NoError(t, err)

	assert.Equal(t, int64(250), award.PointsEarned, "points are floored")
	assert.Equal(t, int64(250), award.TotalPoints)
	assert.Equal(t, TierBronze, award.Tier)
	require.NotNil(t, award.Transaction)
	assert.Equal(t, "earn", award.Transaction.Kind)
	assert.Equal(t, "o1", award.Transaction.OrderID)

	require.Len(t, repo.transactions, 1)
	assert.Equal(t, TierBronze, repo.tiers["c1"])
}

func TestAwardPoints_ZeroSubtotalIsNoop(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testLogger(), 1)

	award, err := svc.AwardPoints(context.Background(), "c1", "o1", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(0), award.PointsEarned)
	assert.Empty(t, repo.transactions)
	assert.Empty(t, repo.balances)
}

func TestAwardPoints_TierUpgrade(t *testing.T) {
	repo := newFakeRepo()
	repo.balances["c1"] = 950
	svc := NewService(repo, testLogger(), 1)

	award, err := svc.AwardPoints(context.Background(), "c1", "o1", 100)
	require.NoError(t, err)

	assert.Equal(t, int64(1050), award.TotalPoints)
	assert.Equal(t, TierSilver, award.Tier)
	assert.Equal(t, TierSilver, repo.tiers["c1"])
}

func TestAwardPoints_TierUpdateFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.setTierErr = errors.New("tier column locked")
	svc := NewService(repo, testLogger(), 1)

	award, err := svc.AwardPoints(context.Background(), "c1", "o1", 100)
	require.NoError(t, err, "tier update is best-effort")
	assert.Equal(t, int64(100), award.PointsEarned)
}

func TestAwardPoints_AddPointsError(t *testing.T) {
	repo := newFakeRepo()
	repo.addPointsErr = errors.New("customer missing")
	svc := NewService(repo, testLogger(), 1)

	_, err := svc.AwardPoints(context.Background(), "c1", "o1", 100)
	require.Error(t, err)
	assert.Empty(t, repo.transactions)
}

func TestRecordTransaction_Redeem(t *testing.T) {
	repo := newFakeRepo()
	repo.balances["c1"] = 500
	svc := NewService(repo, testLogger(), 1)

	tx := &Transaction{CustomerID: "c1", Points: -200, Kind: "redeem"}
	require.NoError(t, svc.RecordTransaction(context.Background(), tx))

	assert.Equal(t, int64(300), repo.balances["c1"])
	require.Len(t, repo.transactions, 1)
	assert.NotEmpty(t, repo.transactions[0].ID, "id is assigned when absent")
	assert.False(t, repo.transactions[0].CreatedAt.IsZero())
}

func TestRecordTransaction_ZeroPointsOnlyLogged(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testLogger(), 1)

	tx := &Transaction{ID: "t1", CustomerID: "c1", Points: 0, Kind: "adjust"}
	require.NoError(t, svc.RecordTransaction(context.Background(), tx))

	assert.Empty(t, repo.balances, "zero movement does not touch the balance")
	require.Len(t, repo.transactions, 1)
	assert.Equal(t, "t1", repo.transactions[0].ID)
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, TierBronze, TierFor(0))
	assert.Equal(t, TierBronze, TierFor(999))
	assert.Equal(t, TierSilver, TierFor(1000))
	assert.Equal(t, TierSilver, TierFor(4999))
	assert.Equal(t, TierGold, TierFor(5000))
}
