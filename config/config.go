package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	Graph     GraphConfig
	Schedule  ScheduleConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
	Master    MasterConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

// GraphConfig describes the Microsoft Graph tenant, the sites hosting the
// SharePoint lists and the list identifiers for each collection.
type GraphConfig struct {
	TenantID       string
	ClientID       string
	Scopes         []string
	BaseURL        string
	TokenCachePath string

	// Site paths in Graph "host:/path" form.
	SharedSite   string
	PersonalSite string

	// List ids per collection.
	LoadsListID          string
	UsersListID          string
	PlantsListID         string
	TrucksListID         string
	DriversListID        string
	JustificationsListID string

	PageSize    int
	ItemCeiling int
}

// ScheduleConfig carries the estimation policy knobs. The speed constant
// encodes an empirical road average, not a physical law.
type ScheduleConfig struct {
	AvgSpeedKmh         float64
	FullOverheadMin     float64
	CombinedOverheadMin float64
	GapToleranceMin     int
	DelayToleranceMin   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type SessionConfig struct {
	FilePath string
}

// MasterConfig is the hardcoded local superuser checked before the remote
// user list during local authentication.
type MasterConfig struct {
	Login    string
	Password string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-key"),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "30m"), 30*time.Minute),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"), 7*24*time.Hour),
		},
		Graph: GraphConfig{
			TenantID:       getEnv("GRAPH_TENANT_ID", "7d9754b3-dcdb-4efe-8bb7-c0e5587b86ed"),
			ClientID:       getEnv("GRAPH_CLIENT_ID", "3170544c-21a9-46db-97ab-c4da57a8e7bf"),
			Scopes:         parseStringSlice(getEnv("GRAPH_SCOPES", "Sites.ReadWrite.All,User.Read,offline_access")),
			BaseURL:        getEnv("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
			TokenCachePath: getEnv("GRAPH_TOKEN_CACHE", ".fleettrack-token.json"),

			SharedSite:   getEnv("GRAPH_SHARED_SITE", "vialacteoscombr.sharepoint.com:/sites/Powerapps"),
			PersonalSite: getEnv("GRAPH_PERSONAL_SITE", "vialacteoscombr-my.sharepoint.com:/personal/matheus_henrique_viagroup_com_br"),

			LoadsListID:          getEnv("GRAPH_LOADS_LIST", "0cf9a45c-db41-40b0-9f04-fd1a867fca77"),
			UsersListID:          getEnv("GRAPH_USERS_LIST", "bb6b7559-4d05-4036-ad5a-ab5b136ff2a5"),
			PlantsListID:         getEnv("GRAPH_PLANTS_LIST", "6034003e-d0a9-4d22-a250-b36de06dfba1"),
			TrucksListID:         getEnv("GRAPH_TRUCKS_LIST", "6d0e876c-4d6c-4617-b8ec-de8d64f6c508"),
			DriversListID:        getEnv("GRAPH_DRIVERS_LIST", "a8b55455-02df-4aa9-a231-567c3ac27f7c"),
			JustificationsListID: getEnv("GRAPH_JUSTIFICATIONS_LIST", ""),

			PageSize:    parseInt(getEnv("GRAPH_PAGE_SIZE", "200"), 200),
			ItemCeiling: parseInt(getEnv("GRAPH_ITEM_CEILING", "5000"), 5000),
		},
		Schedule: ScheduleConfig{
			AvgSpeedKmh:         parseFloat(getEnv("SCHEDULE_AVG_SPEED_KMH", "38"), 38),
			FullOverheadMin:     parseFloat(getEnv("SCHEDULE_FULL_OVERHEAD_MIN", "40"), 40),
			CombinedOverheadMin: parseFloat(getEnv("SCHEDULE_COMBINED_OVERHEAD_MIN", "80"), 80),
			GapToleranceMin:     parseInt(getEnv("SCHEDULE_GAP_TOLERANCE_MIN", "60"), 60),
			DelayToleranceMin:   parseInt(getEnv("SCHEDULE_DELAY_TOLERANCE_MIN", "30"), 30),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
		},
		Session: SessionConfig{
			FilePath: getEnv("SESSION_FILE", ".fleettrack-session.json"),
		},
		Master: MasterConfig{
			Login:    getEnv("MASTER_LOGIN", "master"),
			Password: getEnv("MASTER_PASSWORD", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseFloat(s string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// If it's just a number, assume seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) Validate() {
	if c.JWT.Secret == "dev-secret-key" && c.IsProduction() {
		log.Fatal("JWT_SECRET must be set in production")
	}
	if c.Graph.TenantID == "" || c.Graph.ClientID == "" {
		log.Fatal("GRAPH_TENANT_ID and GRAPH_CLIENT_ID must be set")
	}
	if c.Master.Password == "" && c.IsProduction() {
		log.Fatal("MASTER_PASSWORD must be set in production")
	}
	if c.Schedule.AvgSpeedKmh <= 0 {
		log.Fatal("SCHEDULE_AVG_SPEED_KMH must be positive")
	}
}
