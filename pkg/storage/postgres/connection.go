package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/caduceuspress/pulse/pkg/config"
	"github.com/caduceuspress/pulse/pkg/observability"
)

// ConnectionManager manages the primary ingestion connection and optional
// read replicas. Writes (delivery tiers, rollups) go to the primary; the
// stats reads round-robin across replicas when any are configured.
type ConnectionManager struct {
	primary  *sql.DB
	replicas []*sql.DB
	current  uint32
	mu       sync.RWMutex
	config   config.DatabaseConfig
	logger   *observability.Logger
}

// NewConnectionManager opens and verifies the primary connection, then
// attaches whatever replicas answer. Replicas are optional: a replica that
// fails to connect is logged and skipped, never fatal.
func NewConnectionManager(cfg config.DatabaseConfig, logger *observability.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		config: cfg,
		logger: logger,
	}

	primary, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary connection: %w", err)
	}

	primary.SetMaxOpenConns(cfg.MaxConns)
	primary.SetMaxIdleConns(cfg.MinConns)
	primary.SetConnMaxLifetime(cfg.MaxLifetime)
	primary.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := primary.PingContext(ctx); err != nil {
		primary.Close()
		return nil, fmt.Errorf("failed to ping primary: %w", err)
	}
	cm.primary = primary

	for i, replicaURL := range cfg.ReplicaURLs {
		if err := cm.addReplica(replicaURL); err != nil {
			logger.WithError(err).WithField("replica", i).Warn("skipping unreachable replica")
		}
	}

	logger.WithField("replicas", len(cm.replicas)).Info("database connections established")
	return cm, nil
}

// Primary returns the write connection.
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primary
}

// Replica returns a read connection, round-robin across replicas, falling
// back to the primary when none are available.
func (cm *ConnectionManager) Replica() *sql.DB {
	cm.mu.RLock()
	replicaCount := len(cm.replicas)
	cm.mu.RUnlock()

	if replicaCount == 0 {
		return cm.primary
	}

	index := atomic.AddUint32(&cm.current, 1)
	replicaIndex := int(index % uint32(replicaCount))

	cm.mu.RLock()
	replica := cm.replicas[replicaIndex]
	cm.mu.RUnlock()

	return replica
}

// HealthCheck pings the primary and all replicas. Replica failures only
// surface when every replica is down; the primary alone keeps the pipeline
// functional.
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary unhealthy: %w", err)
	}

	cm.mu.RLock()
	replicas := make([]*sql.DB, len(cm.replicas))
	copy(replicas, cm.replicas)
	cm.mu.RUnlock()

	var unhealthy []string
	for i, replica := range replicas {
		if err := replica.PingContext(ctx); err != nil {
			unhealthy = append(unhealthy, fmt.Sprintf("replica-%d", i))
		}
	}

	if len(unhealthy) > 0 && len(unhealthy) == len(replicas) {
		return fmt.Errorf("all replicas unhealthy: %s", strings.Join(unhealthy, ", "))
	}
	return nil
}

// Stats returns pool statistics for the primary and each replica.
func (cm *ConnectionManager) Stats() ConnectionStats {
	stats := ConnectionStats{
		Primary: cm.primary.Stats(),
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats.Replicas = make([]sql.DBStats, len(cm.replicas))
	for i, replica := range cm.replicas {
		stats.Replicas[i] = replica.Stats()
	}
	return stats
}

// ConnectionStats holds pool statistics for all connections.
type ConnectionStats struct {
	Primary  sql.DBStats
	Replicas []sql.DBStats
}

// RemoveUnhealthyReplicas drops and closes replicas that fail a ping,
// returning how many were removed.
func (cm *ConnectionManager) RemoveUnhealthyReplicas(ctx context.Context) int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	healthy := make([]*sql.DB, 0, len(cm.replicas))
	removed := 0

	for _, replica := range cm.replicas {
		if err := replica.PingContext(ctx); err != nil {
			replica.Close()
			removed++
		} else {
			healthy = append(healthy, replica)
		}
	}

	cm.replicas = healthy
	return removed
}

// StartHealthCheckRoutine periodically evicts replicas that stop answering.
func (cm *ConnectionManager) StartHealthCheckRoutine(ctx context.Context, interval time.Duration) {
	if interval == 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		defer observability.RecoverPanic(cm.logger, "replica health check")

		for {
			select {
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				removed := cm.RemoveUnhealthyReplicas(checkCtx)
				cancel()

				if removed > 0 {
					cm.logger.WithField("removed", removed).Warn("evicted unhealthy replicas")
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close closes the primary and all replicas.
func (cm *ConnectionManager) Close() error {
	var errs []error

	if err := cm.primary.Close(); err != nil {
		errs = append(errs, fmt.Errorf("primary close error: %w", err))
	}

	cm.mu.Lock()
	replicas := cm.replicas
	cm.replicas = nil
	cm.mu.Unlock()

	for i, replica := range replicas {
		if err := replica.Close(); err != nil {
			errs = append(errs, fmt.Errorf("replica-%d close error: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("connection close errors: %v", errs)
	}
	return nil
}

func (cm *ConnectionManager) addReplica(replicaURL string) error {
	replica, err := sql.Open("postgres", replicaURL)
	if err != nil {
		return fmt.Errorf("failed to open replica connection: %w", err)
	}

	// Replicas serve dashboard reads only and get a smaller pool.
	replicaMaxConns := cm.config.MaxConns / 2
	if replicaMaxConns < 2 {
		replicaMaxConns = 2
	}
	replica.SetMaxOpenConns(replicaMaxConns)
	replica.SetMaxIdleConns(cm.config.MinConns)
	replica.SetConnMaxLifetime(cm.config.MaxLifetime)
	replica.SetConnMaxIdleTime(cm.config.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cm.config.Timeout)
	defer cancel()

	if err := replica.PingContext(ctx); err != nil {
		replica.Close()
		return fmt.Errorf("failed to ping replica: %w", err)
	}

	cm.mu.Lock()
	cm.replicas = append(cm.replicas, replica)
	cm.mu.Unlock()
	return nil
}
