package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Postgres struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"database"`
	SSLMode     string `mapstructure:"sslmode"`
	AutoMigrate bool   `mapstructure:"autoMigrate"`
}

func (p Postgres) ConnStr() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s", p.Host, p.User, p.Password, p.DBName, p.Port, p.SSLMode)
}

func (p Postgres) ReplicationConnStr() string {
	return p.ConnStr() + " replication=database"
}

// Configured reports whether enough of the section is set to open a connection.
func (p Postgres) Configured() bool {
	return p.Host != "" && p.DBName != ""
}

// Warehouse is the analytical warehouse (Redshift) the ingestion job reads from.
type Warehouse struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (w Warehouse) ConnStr() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s client_encoding=UTF8", w.Host, w.Port, w.User, w.Password, w.DBName, w.SSLMode)
}

type Nats struct {
	Host               string `mapstructure:"host"`
	Port               string `mapstructure:"port"`
	Stream             string `mapstructure:"stream"`
	RestaurantsSubject string `mapstructure:"restaurantsSubject"`
}

func (n Nats) ConnStr() string {
	return fmt.Sprintf("nats://%s:%s", n.Host, n.Port)
}

type Replication struct {
	Name  string `mapstructure:"name"`
	Slot  string `mapstructure:"slot"`
	Table string `mapstructure:"table"`
}

// LLM configures the embedding and text-generation provider.
type LLM struct {
	Provider       string        `mapstructure:"provider"`
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	APIKey         string        `mapstructure:"apiKey"`
	EmbeddingModel string        `mapstructure:"embeddingModel"`
	ChatModel      string        `mapstructure:"chatModel"`
	EmbeddingDim   int           `mapstructure:"embeddingDim"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

func (l *LLM) Address() string {
	return fmt.Sprintf("http://%s:%s", l.Host, l.Port)
}

type RAG struct {
	TopK        int `mapstructure:"topK"`
	FallbackIDs int `mapstructure:"fallbackIDs"`
}

type Server struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type Admin struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type Redis struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// History selects where chat history is appended: "postgres" or "sqlite".
type History struct {
	Driver     string `mapstructure:"driver"`
	SqlitePath string `mapstructure:"sqlitePath"`
	Session    string `mapstructure:"session"`
}

type Ingest struct {
	Source     string `mapstructure:"source"`
	CrawlCSV   string `mapstructure:"crawlCSV"`
	WaitingCSV string `mapstructure:"waitingCSV"`
}

type Embedder struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queueSize"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type Config struct {
	Server         Server      `mapstructure:"server"`
	Admin          Admin       `mapstructure:"admin"`
	Postgres       Postgres    `mapstructure:"postgres"`
	VectorPostgres Postgres    `mapstructure:"vectorPostgres"`
	Warehouse      Warehouse   `mapstructure:"warehouse"`
	Nats           Nats        `mapstructure:"nats"`
	Replication    Replication `mapstructure:"replication"`
	LLM            LLM         `mapstructure:"llm"`
	RAG            RAG         `mapstructure:"rag"`
	Redis          Redis       `mapstructure:"redis"`
	History        History     `mapstructure:"history"`
	Ingest         Ingest      `mapstructure:"ingest"`
	Embedder       Embedder    `mapstructure:"embedder"`
	Logging        Logging     `mapstructure:"logging"`
}

// VectorStore returns the connection settings of the store holding embeddings.
// It falls back to the default store when no dedicated one is configured.
func (c *Config) VectorStore() Postgres {
	if c.VectorPostgres.Configured() {
		return c.VectorPostgres
	}
	return c.Postgres
}

// Load reads the YAML file at path (or searches ./config and . when path is
// empty) and overlays environment variables.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-provided viper instance, so flags bound to v
// take precedence.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")

	v.SetDefault("admin.user", "")
	v.SetDefault("admin.password", "")

	for _, prefix := range []string{"postgres", "vectorPostgres"} {
		v.SetDefault(prefix+".host", "")
		v.SetDefault(prefix+".port", "5432")
		v.SetDefault(prefix+".user", "postgres")
		v.SetDefault(prefix+".password", "")
		v.SetDefault(prefix+".database", "")
		v.SetDefault(prefix+".sslmode", "disable")
		v.SetDefault(prefix+".autoMigrate", false)
	}

	v.SetDefault("warehouse.host", "")
	v.SetDefault("warehouse.port", "5439")
	v.SetDefault("warehouse.user", "")
	v.SetDefault("warehouse.password", "")
	v.SetDefault("warehouse.database", "")
	v.SetDefault("warehouse.sslmode", "require")

	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", "4222")
	v.SetDefault("nats.stream", "RESTAURANTS")
	v.SetDefault("nats.restaurantsSubject", "restaurants.embed")

	v.SetDefault("replication.name", "restaurants_pub")
	v.SetDefault("replication.slot", "restaurants_slot")
	v.SetDefault("replication.table", "restaurants")

	v.SetDefault("llm.provider", "googleai")
	v.SetDefault("llm.host", "localhost")
	v.SetDefault("llm.port", "11434")
	v.SetDefault("llm.apiKey", "")
	v.SetDefault("llm.embeddingModel", "text-embedding-004")
	v.SetDefault("llm.chatModel", "gemini-pro")
	v.SetDefault("llm.embeddingDim", 768)
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("rag.topK", 4)
	v.SetDefault("rag.fallbackIDs", 3)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("history.driver", "postgres")
	v.SetDefault("history.sqlitePath", "chat_history.db")
	v.SetDefault("history.session", "restaurants-rag")

	v.SetDefault("ingest.source", "csv")
	v.SetDefault("ingest.crawlCSV", "kakao_crawl.csv")
	v.SetDefault("ingest.waitingCSV", "")

	v.SetDefault("embedder.workers", 2)
	v.SetDefault("embedder.queueSize", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// bindLegacyEnv keeps the variable names deployments already export.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"llm.apiKey":         {"LLM_APIKEY", "GEMINI_API_KEY"},
		"warehouse.host":     {"WAREHOUSE_HOST", "REDSHIFT_HOST"},
		"warehouse.port":     {"WAREHOUSE_PORT", "REDSHIFT_PORT"},
		"warehouse.user":     {"WAREHOUSE_USER", "REDSHIFT_USER"},
		"warehouse.password": {"WAREHOUSE_PASSWORD", "REDSHIFT_PASSWORD"},
		"warehouse.database": {"WAREHOUSE_DATABASE", "REDSHIFT_DB"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// MissingError lists every required key that has no value.
type MissingError struct {
	Section string
	Keys    []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required %s configuration: %s", e.Section, strings.Join(e.Keys, ", "))
}

func missing(section string, fields map[string]string) error {
	var keys []string
	for _, key := range sortedKeys(fields) {
		if fields[key] == "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return &MissingError{Section: section, Keys: keys}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Config) RequirePostgres() error {
	return missing("postgres", map[string]string{
		"postgres.host":     c.Postgres.Host,
		"postgres.database": c.Postgres.DBName,
		"postgres.user":     c.Postgres.User,
	})
}

func (c *Config) RequireLLM() error {
	switch c.LLM.Provider {
	case "googleai":
		return missing("llm", map[string]string{
			"llm.apiKey":         c.LLM.APIKey,
			"llm.chatModel":      c.LLM.ChatModel,
			"llm.embeddingModel": c.LLM.EmbeddingModel,
		})
	case "ollama":
		return missing("llm", map[string]string{
			"llm.host":           c.LLM.Host,
			"llm.port":           c.LLM.Port,
			"llm.chatModel":      c.LLM.ChatModel,
			"llm.embeddingModel": c.LLM.EmbeddingModel,
		})
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
}

func (c *Config) RequireWarehouse() error {
	return missing("warehouse", map[string]string{
		"warehouse.host":     c.Warehouse.Host,
		"warehouse.port":     c.Warehouse.Port,
		"warehouse.user":     c.Warehouse.User,
		"warehouse.password": c.Warehouse.Password,
		"warehouse.database": c.Warehouse.DBName,
	})
}

func (c *Config) RequireNats() error {
	return missing("nats", map[string]string{
		"nats.host":               c.Nats.Host,
		"nats.port":               c.Nats.Port,
		"nats.stream":             c.Nats.Stream,
		"nats.restaurantsSubject": c.Nats.RestaurantsSubject,
	})
}
