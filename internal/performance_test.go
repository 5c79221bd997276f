package internal

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/damon-houk/wex-purchase-conversion/internal/application/service"
	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/db"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/logger"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/metrics"
	"github.com/damon-houk/wex-purchase-conversion/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPerformance(t *testing.T) {
	// Skip in short mode or CI
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	badgerDB, err := db.OpenBadger(t.TempDir())
	require.NoError(t, err)
	defer badgerDB.Close()

	repo, err := db.NewBadgerPurchaseRepository(badgerDB)
	require.NoError(t, err)
	defer repo.Close()

	rates := new(mocks.MockExchangeRateProvider)
	rates.On("LookupRate", mock.Anything, mock.Anything).
		Return(entity.RateFound(decimal.RequireFromString("0.913")), nil)

	log := logger.NewLogrusLogger(io.Discard, logger.ErrorLevel)
	purchaseService := service.NewPurchaseService(repo, rates, log, metrics.New())

	numPurchases := 200
	concurrency := 10
	perWorker := numPurchases / concurrency

	var (
		idsMu sync.Mutex
		ids   []int64
	)

	t.Run("Purchase Creation", func(t *testing.T) {
		var failures atomic.Int32
		startTime := time.Now()

		wg := sync.WaitGroup{}
		wg.Add(concurrency)
		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()

				ctx := context.Background()
				for j := 0; j < perWorker; j++ {
					record, err := purchaseService.CreatePurchase(ctx, entity.PurchaseSubmission{
						Description: fmt.Sprintf("Purchase %d-%d", workerID, j),
						TrxDate:     time.Now().AddDate(0, 0, -rand.Intn(30)).Format(entity.TransactionDateLayout),
						Amount:      fmt.Sprintf("%d.%02d", 100+rand.Intn(900), rand.Intn(100)),
					})
					if err != nil {
						failures.Add(1)
						continue
					}
					idsMu.Lock()
					ids = append(ids, record.ID)
					idsMu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		duration := time.Since(startTime)

		assert.Zero(t, failures.Load())
		t.Logf("Purchase creation: %d purchases in %v (%.2f/sec)",
			numPurchases, duration, float64(numPurchases)/duration.Seconds())
	})

	require.Len(t, ids, numPurchases)
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	t.Run("Converted Reads", func(t *testing.T) {
		var failures atomic.Int32
		startTime := time.Now()

		wg := sync.WaitGroup{}
		wg.Add(concurrency)
		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()

				ctx := context.Background()
				for j := 0; j < perWorker; j++ {
					id := ids[workerID*perWorker+j]
					view, found, err := purchaseService.GetConvertedPurchase(ctx, id, "Euro", "Euro Zone")
					if err != nil || !found || view.ID != id {
						failures.Add(1)
					}
				}
			}(i)
		}
		wg.Wait()
		duration := time.Since(startTime)

		assert.Zero(t, failures.Load())
		t.Logf("Converted reads: %d reads in %v (%.2f/sec)",
			numPurchases, duration, float64(numPurchases)/duration.Seconds())
	})
}
