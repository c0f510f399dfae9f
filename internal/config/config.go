package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ark-network/notewallet/internal/core/application"
	"github.com/ark-network/notewallet/internal/core/ports"
	chainclient "github.com/ark-network/notewallet/internal/infrastructure/chain/rest"
	"github.com/ark-network/notewallet/internal/infrastructure/cypher"
	"github.com/ark-network/notewallet/internal/infrastructure/db"
	scheduler "github.com/ark-network/notewallet/internal/infrastructure/scheduler/gocron"
	signerclient "github.com/ark-network/notewallet/internal/infrastructure/signer/rest"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

var supportedDbs = func() supportedType {
	types := make(supportedType)
	for _, t := range db.SupportedStoreTypes() {
		types[t] = struct{}{}
	}
	return types
}()

type Config struct {
	Datadir        string
	DbType         string
	DbDir          string
	LogLevel       int
	ChainUrl       string
	SignerUrl      string
	Password       string `json:"-"`
	SyncInterval   int64
	TxExpiry       int64
	SpentRetention int64
	MaxTxHistory   int
	FeeBase        uint64
	FeePerNote     uint64
	Accounts       []string
	RequestTimeout int64
	ScryptN        int

	store     ports.SnapshotStore
	chain     ports.ChainClient
	signer    ports.SignerService
	cypher    ports.Cypher
	scheduler ports.SchedulerService
	svc       application.Service
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir        = "DATADIR"
	DbType         = "DB_TYPE"
	LogLevel       = "LOG_LEVEL"
	ChainUrl       = "CHAIN_URL"
	SignerUrl      = "SIGNER_URL"
	Password       = "PASSWORD"
	SyncInterval   = "SYNC_INTERVAL"
	TxExpiry       = "TX_EXPIRY"
	SpentRetention = "SPENT_RETENTION"
	MaxTxHistory   = "MAX_TX_HISTORY"
	FeeBase        = "FEE_BASE"
	FeePerNote     = "FEE_PER_NOTE"
	Accounts       = "ACCOUNTS"
	RequestTimeout = "REQUEST_TIMEOUT"
	ScryptN        = "SCRYPT_N"

	defaultDatadir        = appDataDir("notewalletd")
	defaultDbType         = db.BadgerStore
	defaultLogLevel       = 4
	defaultSyncInterval   = 60
	defaultTxExpiry       = 21600 // 6 hours
	defaultSpentRetention = 86400 // 24 hours
	defaultMaxTxHistory   = 200
	defaultFeeBase        = 0
	defaultFeePerNote     = 0
	defaultRequestTimeout = 30
	defaultScryptN        = cypher.DefaultScryptN
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("NOTEWALLET")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(SyncInterval, defaultSyncInterval)
	viper.SetDefault(TxExpiry, defaultTxExpiry)
	viper.SetDefault(SpentRetention, defaultSpentRetention)
	viper.SetDefault(MaxTxHistory, defaultMaxTxHistory)
	viper.SetDefault(FeeBase, defaultFeeBase)
	viper.SetDefault(FeePerNote, defaultFeePerNote)
	viper.SetDefault(RequestTimeout, defaultRequestTimeout)
	viper.SetDefault(ScryptN, defaultScryptN)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	return &Config{
		Datadir:        viper.GetString(Datadir),
		DbType:         viper.GetString(DbType),
		DbDir:          filepath.Join(viper.GetString(Datadir), "db"),
		LogLevel:       viper.GetInt(LogLevel),
		ChainUrl:       viper.GetString(ChainUrl),
		SignerUrl:      viper.GetString(SignerUrl),
		Password:       viper.GetString(Password),
		SyncInterval:   viper.GetInt64(SyncInterval),
		TxExpiry:       viper.GetInt64(TxExpiry),
		SpentRetention: viper.GetInt64(SpentRetention),
		MaxTxHistory:   viper.GetInt(MaxTxHistory),
		FeeBase:        viper.GetUint64(FeeBase),
		FeePerNote:     viper.GetUint64(FeePerNote),
		Accounts:       parseAccounts(viper.GetString(Accounts)),
		RequestTimeout: viper.GetInt64(RequestTimeout),
		ScryptN:        viper.GetInt(ScryptN),
	}, nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if len(c.ChainUrl) <= 0 {
		return fmt.Errorf("missing chain url")
	}
	if len(c.SignerUrl) <= 0 {
		return fmt.Errorf("missing signer url")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("invalid sync interval, must not be negative")
	}
	if c.TxExpiry <= 0 {
		return fmt.Errorf("invalid tx expiry, must be greater than zero")
	}
	if c.SpentRetention < 0 {
		return fmt.Errorf("invalid spent retention, must not be negative")
	}
	if c.MaxTxHistory <= 0 {
		return fmt.Errorf("invalid max tx history, must be greater than zero")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout, must be greater than zero")
	}
	if c.LogLevel < int(log.PanicLevel) || c.LogLevel > int(log.TraceLevel) {
		return fmt.Errorf(
			"invalid log level, must be in range [%d, %d]",
			log.PanicLevel, log.TraceLevel,
		)
	}
	if c.ScryptN < 2 || c.ScryptN&(c.ScryptN-1) != 0 {
		log.Infof(
			"scrypt cost must be a power of 2 greater than 1, using default %d",
			defaultScryptN,
		)
		c.ScryptN = defaultScryptN
	}

	if err := c.snapshotStore(); err != nil {
		return err
	}
	if err := c.chainClient(); err != nil {
		return err
	}
	if err := c.signerService(); err != nil {
		return err
	}
	c.cypher = cypher.NewAES256Cypher(c.ScryptN)
	if c.SyncInterval > 0 {
		c.scheduler = scheduler.NewScheduler()
	}
	return c.appService()
}

func (c *Config) AppService() application.Service {
	return c.svc
}

func (c *Config) snapshotStore() error {
	var storeConfig []interface{}
	switch c.DbType {
	case db.BadgerStore:
		storeConfig = []interface{}{c.DbDir, log.StandardLogger()}
	case db.InMemoryStore:
	default:
		storeConfig = []interface{}{c.DbDir}
	}

	store, err := db.NewSnapshotStore(db.ServiceConfig{
		StoreType:   c.DbType,
		StoreConfig: storeConfig,
	})
	if err != nil {
		return err
	}
	c.store = store
	return nil
}

func (c *Config) chainClient() error {
	client, err := chainclient.NewChainClient(c.ChainUrl, c.timeout())
	if err != nil {
		return err
	}
	c.chain = client
	return nil
}

func (c *Config) signerService() error {
	client, err := signerclient.NewSignerClient(c.SignerUrl, c.timeout())
	if err != nil {
		return err
	}
	c.signer = client
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		application.Config{
			TxExpiry:       time.Duration(c.TxExpiry) * time.Second,
			SpentRetention: time.Duration(c.SpentRetention) * time.Second,
			MaxTxHistory:   c.MaxTxHistory,
			FeeBase:        c.FeeBase,
			FeePerNote:     c.FeePerNote,
			SyncInterval:   c.SyncInterval,
			Accounts:       c.Accounts,
		},
		c.chain, c.signer, c.store, c.cypher, c.scheduler,
	)
	if err != nil {
		c.store.Close()
		return err
	}
	c.svc = svc
	return nil
}

func (c *Config) timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func parseAccounts(str string) []string {
	accounts := make([]string, 0)
	for _, a := range strings.Split(str, ",") {
		if a = strings.TrimSpace(a); len(a) > 0 {
			accounts = append(accounts, a)
		}
	}
	return accounts
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// appDataDir returns ~/.<appName>, or the relative dir if the home directory
// can't be resolved.
func appDataDir(appName string) string {
	dir := "." + strings.ToLower(appName)
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, dir)
}
