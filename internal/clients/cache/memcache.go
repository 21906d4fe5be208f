package cache

import (
	"strconv"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/looprhq/analytics-server/internal/logger"
)

var defaultBase = 10

// Report cache keys. Balances are never cached; only derived dashboard
// reports are, and every write path drops them.
const (
	ReportSummary   = "summary"
	ReportLineChart = "line-chart"
)

var AllReports = []string{ReportSummary, ReportLineChart}

type MemcacheClient struct {
	client *memcache.Client
}

type config interface {
	Hosts() []string
}

func NewMemcache(config config) (*MemcacheClient, error) {
	logger.Info("memcached hosts", zap.Strings("hosts", config.Hosts()))
	mc := memcache.New(config.Hosts()...)
	return &MemcacheClient{mc}, mc.Ping()
}

func formatKey(userID int64, report string) string {
	return strconv.FormatInt(userID, defaultBase) + ":" + report
}

func (mc *MemcacheClient) CacheReport(userID int64, report string, payload []byte) error {
	logger.Info("cache report", zap.Int64("userID", userID), zap.String("report", report))
	return mc.client.Set(&memcache.Item{
		Key:   formatKey(userID, report),
		Value: payload,
	})
}

func (mc *MemcacheClient) GetReport(userID int64, report string) ([]byte, error) {
	item, err := mc.client.Get(formatKey(userID, report))
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (mc *MemcacheClient) InvalidateCache(userID int64, reports []string) error {
	logger.Info("invalidate cache", zap.Int64("userID", userID))

	for _, report := range reports {
		err := mc.client.Delete(formatKey(userID, report))
		if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			return err
		}
	}
	return nil
}
