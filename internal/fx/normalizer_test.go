package fx

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripledger/tripledger/internal/models"
)

// fakeProvider serves canned rates and counts calls.
type fakeProvider struct {
	rates      map[string]decimal.Decimal
	currencies map[string]string
	err        error

	rateCalls     int
	currencyCalls int
}

func (p *fakeProvider) Rates(ctx context.Context, date string) (map[string]decimal.Decimal, error) {
	p.rateCalls++
	if p.err != nil {
		return nil, p.err
	}
	return p.rates, nil
}

func (p *fakeProvider) Currencies(ctx context.Context) (map[string]string, error) {
	p.currencyCalls++
	if p.err != nil {
		return nil, p.err
	}
	return p.currencies, nil
}

// memRateStore is an in-memory stand-in for the SQLite rate cache.
type memRateStore struct {
	rates map[string]decimal.Decimal
}

func newMemRateStore() *memRateStore {
	return &memRateStore{rates: make(map[string]decimal.Decimal)}
}

func (s *memRateStore) GetRate(ctx context.Context, currency, date string) (decimal.Decimal, bool, error) {
	rate, ok := s.rates[currency+"|"+date]
	return rate, ok, nil
}

func (s *memRateStore) PutRate(ctx context.Context, rate *models.ExchangeRate) error {
	s.rates[rate.Currency+"|"+rate.Date] = rate.RateToHome
	return nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRateToHomeIdentity(t *testing.T) {
	provider := &fakeProvider{}
	n := NewNormalizer("rub", newMemRateStore(), provider)

	rate, err := n.RateToHome(context.Background(), "RUB", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "1.000000", rate.StringFixed(6))
	assert.Equal(t, 0, provider.rateCalls, "home currency must not touch the provider")
}

func TestRateToHomeCrossRate(t *testing.T) {
	// Pivot buys 1 USD and 90 RUB, so 1 USD = 90 RUB.
	provider := &fakeProvider{rates: map[string]decimal.Decimal{
		"USD": d("1"),
		"RUB": d("90"),
	}}
	n := NewNormalizer("RUB", newMemRateStore(), provider)

	rate, err := n.RateToHome(context.Background(), "usd", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "90.000000", rate.StringFixed(6))
}

func TestRateToHomeRoundsToSixDigits(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{
		"EUR": d("0.85"),
		"RUB": d("90"),
	}}
	n := NewNormalizer("RUB", newMemRateStore(), provider)

	rate, err := n.RateToHome(context.Background(), "EUR", "2024-05-01")
	require.NoError(t, err)
	// 90 / 0.85 = 105.88235294... rounded half-up at 6 digits.
	assert.Equal(t, "105.882353", rate.StringFixed(6))
}

func TestRateToHomeCacheHitAvoidsRefetch(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{
		"USD": d("1"),
		"RUB": d("90"),
	}}
	store := newMemRateStore()
	n := NewNormalizer("RUB", store, provider)

	first, err := n.RateToHome(context.Background(), "USD", "2024-05-01")
	require.NoError(t, err)
	second, err := n.RateToHome(context.Background(), "USD", "2024-05-01")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, provider.rateCalls, "second lookup must come from the cache")

	// A different date is a different key.
	_, err = n.RateToHome(context.Background(), "USD", "2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.rateCalls)
}

func TestRateToHomeInvalidDataNotCached(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{
		"RUB": d("90"), // target currency missing
	}}
	store := newMemRateStore()
	n := NewNormalizer("RUB", store, provider)

	_, err := n.RateToHome(context.Background(), "USD", "2024-05-01")
	require.ErrorIs(t, err, ErrInvalidRateData)
	assert.Empty(t, store.rates, "failed lookups must not poison the cache")

	// Home currency pivot rate missing is just as invalid.
	provider.rates = map[string]decimal.Decimal{"USD": d("1")}
	_, err = n.RateToHome(context.Background(), "USD", "2024-05-01")
	require.ErrorIs(t, err, ErrInvalidRateData)

	// A zero pivot rate cannot form a cross rate.
	provider.rates = map[string]decimal.Decimal{"USD": d("0"), "RUB": d("90")}
	_, err = n.RateToHome(context.Background(), "USD", "2024-05-01")
	require.ErrorIs(t, err, ErrInvalidRateData)
}

func TestRateToHomeProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: ErrProviderUnavailable}
	n := NewNormalizer("RUB", newMemRateStore(), provider)

	_, err := n.RateToHome(context.Background(), "USD", "2024-05-01")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestConvert(t *testing.T) {
	provider := &fakeProvider{rates: map[string]decimal.Decimal{
		"USD": d("1"),
		"RUB": d("92.5"),
	}}
	n := NewNormalizer("RUB", newMemRateStore(), provider)

	rate, amountHome, err := n.Convert(context.Background(), d("10.99"), "USD", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "92.500000", rate.StringFixed(6))
	// 10.99 * 92.5 = 1016.575, half-up to 1016.58.
	assert.Equal(t, "1016.58", amountHome.StringFixed(2))
}

func TestSupportedCurrenciesCachedFor24Hours(t *testing.T) {
	provider := &fakeProvider{currencies: map[string]string{
		"USD": "United States Dollar",
		"RUB": "Russian Ruble",
	}}
	n := NewNormalizer("RUB", newMemRateStore(), provider)

	first, err := n.SupportedCurrencies(context.Background())
	require.NoError(t, err)
	second, err := n.SupportedCurrencies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.currencyCalls, "directory must be served from memory")

	// Age the directory past its TTL and expect a refetch.
	n.currenciesAge = time.Now().Add(-25 * time.Hour)
	_, err = n.SupportedCurrencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.currencyCalls)
}
