package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"housesale_back_end/internal/config"
)

// --- Configuration ScyllaDB ---
type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

type ScyllaManager struct {
	sessions map[string]*gocql.Session // keyspace → session
	configs  map[string]ScyllaKeyspaceConfig
	mu       sync.Mutex
}

// --- Variables Globales ---
var (
	Scylla *ScyllaManager
	Redis  *redis.Client

	usersKeyspace  string
	ordersKeyspace string
)

// ConnectDatabases initialise ScyllaDB (keyspaces users et orders) puis Redis
func ConnectDatabases(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := InitScyllaDB(cfg.Scylla); err != nil {
		return fmt.Errorf("échec initialisation ScyllaDB: %w", err)
	}
	if err := connectRedis(ctx, cfg.Redis); err != nil {
		return err
	}

	log.Println("✅ Toutes les bases de données sont connectées")
	return nil
}

// =============================================
// SCYLLA DB (Multi-Keyspaces avec SSL & Rôles)
// =============================================

// InitScyllaDB initialise le gestionnaire de sessions ScyllaDB
func InitScyllaDB(cfg config.ScyllaConfig) error {
	Scylla = &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  loadScyllaConfigs(cfg),
	}
	usersKeyspace = cfg.UsersKeyspace
	ordersKeyspace = cfg.OrdersKeyspace

	for keyspace := range Scylla.configs {
		if _, err := Scylla.GetSession(keyspace); err != nil {
			return fmt.Errorf("échec initialisation keyspace %s: %w", keyspace, err)
		}
	}

	// Note: Les tables sont créées via scripts/scylladb_init.cql
	return nil
}

func loadScyllaConfigs(cfg config.ScyllaConfig) map[string]ScyllaKeyspaceConfig {
	configs := make(map[string]ScyllaKeyspaceConfig)

	base := ScyllaKeyspaceConfig{
		Hosts:       cfg.Hosts,
		SSLEnabled:  cfg.SSLEnabled,
		CACertPath:  cfg.CACertPath,
		Timeout:     cfg.Timeout,
		NumConns:    cfg.NumConns,
		Consistency: gocql.Quorum, // les écritures LWT utilisent SERIAL en plus
	}

	// --- Keyspace Utilisateurs (solde de crédits, audit) ---
	if cfg.UsersKeyspace != "" {
		users := base
		users.Keyspace = cfg.UsersKeyspace
		users.Username = cfg.UsersRole
		users.Password = cfg.UsersPassword
		configs[cfg.UsersKeyspace] = users
	}

	// --- Keyspace Commandes (packages, coupons, commandes) ---
	if cfg.OrdersKeyspace != "" {
		orders := base
		orders.Keyspace = cfg.OrdersKeyspace
		orders.Username = cfg.OrdersRole
		orders.Password = cfg.OrdersPassword
		configs[cfg.OrdersKeyspace] = orders
	}

	return configs
}

// createScyllaCluster crée une configuration de cluster pour un keyspace
func createScyllaCluster(config ScyllaKeyspaceConfig) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns

	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	if config.SSLEnabled && config.CACertPath != "" {
		if _, err := os.Stat(config.CACertPath); err != nil {
			return nil, fmt.Errorf("impossible de lire le certificat CA: %w", err)
		}
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 config.CACertPath,
			EnableHostVerification: true,
		}
	}

	// Politique de sélection d'hôtes optimisée
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	return cluster, nil
}

// GetSession retourne une session pour un keyspace donné
func (sm *ScyllaManager) GetSession(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	config, exists := sm.configs[keyspace]
	if !exists {
		return nil, fmt.Errorf("keyspace '%s' non configuré", keyspace)
	}

	if session, exists := sm.sessions[keyspace]; exists && !session.Closed() {
		return session, nil
	}

	cluster, err := createScyllaCluster(config)
	if err != nil {
		return nil, fmt.Errorf("erreur configuration cluster pour %s: %w", keyspace, err)
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", keyspace, err)
	}

	sm.sessions[keyspace] = session
	log.Printf("✅ Nouvelle session ScyllaDB pour keyspace '%s' (utilisateur: %s)", keyspace, config.Username)

	return session, nil
}

// CloseScylla ferme toutes les sessions ScyllaDB
func CloseScylla() {
	if Scylla == nil {
		return
	}
	Scylla.mu.Lock()
	defer Scylla.mu.Unlock()

	for keyspace, session := range Scylla.sessions {
		session.Close()
		log.Printf("🔌 Session ScyllaDB fermée pour keyspace '%s'", keyspace)
	}
}

// GetUsersSession retourne la session pour le keyspace users
func GetUsersSession() (*gocql.Session, error) {
	if usersKeyspace == "" {
		return nil, fmt.Errorf("SCYLLA_KS_USERS_KEYSPACE non configuré")
	}
	return Scylla.GetSession(usersKeyspace)
}

// GetOrdersSession retourne la session pour le keyspace orders
func GetOrdersSession() (*gocql.Session, error) {
	if ordersKeyspace == "" {
		return nil, fmt.Errorf("SCYLLA_KS_ORDERS_KEYSPACE non configuré")
	}
	return Scylla.GetSession(ordersKeyspace)
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context, cfg config.RedisConfig) error {
	Redis = redis.NewClient(&redis.Options{
		Addr:         cfg.Host,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("impossible de se connecter à Redis: %w", err)
	}
	log.Println("✅ Connecté à Redis")
	return nil
}

// CloseRedis ferme la connexion Redis
func CloseRedis() error {
	if Redis != nil {
		return Redis.Close()
	}
	return nil
}
