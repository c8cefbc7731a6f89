package config

import (
	"strings"

	"github.com/aviroy619/rabbitloader-chat/pkg/config"
)

// Config stores environment configuration for the chat service.
type Config struct {
	Port        string
	DatabaseURL string

	LLMAPIKey       string
	LLMAPIURL       string
	ChatModel       string
	EmbedModel      string
	EmbedDimensions int

	// Similarity thresholds per answer tier. A tier only wins when its
	// best match scores at or above its threshold.
	AdminEditThreshold  float64
	PriorityQAThreshold float64
	KBThreshold         float64
	TopK                int

	APIV1Base    string
	APIV2Base    string
	ClientOrigin string

	DNSFallbackEnabled bool
	DNSResolvers       []string

	SubscriptionGetParams string
	PlanUsageGetParams    string

	AdminJWTSecret string
}

// LoadConfig loads the service configuration from environment variables.
func LoadConfig() Config {
	resolversEnv := strings.TrimSpace(config.GetEnv("RL_DNS_RESOLVERS", "1.1.1.1,8.8.8.8"))
	var resolvers []string
	for _, r := range strings.Split(resolversEnv, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			resolvers = append(resolvers, r)
		}
	}

	return Config{
		Port:        config.GetEnv("PORT", "8080"),
		DatabaseURL: config.GetEnv("DATABASE_URL", ""),

		LLMAPIKey:       config.GetEnv("OPENAI_API_KEY", ""),
		LLMAPIURL:       config.GetEnv("OPENAI_API_URL", "https://api.openai.com/v1"),
		ChatModel:       config.GetEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		EmbedModel:      config.GetEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimensions: config.GetEnvInt("OPENAI_EMBED_DIMENSIONS", 1536),

		AdminEditThreshold:  config.GetEnvFloat("RL_ADMIN_EDIT_THRESHOLD", 0.35),
		PriorityQAThreshold: config.GetEnvFloat("RL_PRIORITY_QA_THRESHOLD", 0.50),
		KBThreshold:         config.GetEnvFloat("RL_KB_THRESHOLD", 0.60),
		TopK:                config.GetEnvInt("RL_RETRIEVAL_TOP_K", 3),

		APIV1Base:    config.GetEnv("RL_API_V1_BASE", "https://api-v1.rabbitloader.com"),
		APIV2Base:    config.GetEnv("RL_API_V2_BASE", "https://api-v2.rabbitloader.com"),
		ClientOrigin: config.GetEnv("RL_CLIENT_ORIGIN", "https://rabbitloader.com"),

		DNSFallbackEnabled: config.GetEnvBool("RL_DNS_FALLBACK", true),
		DNSResolvers:       resolvers,

		SubscriptionGetParams: config.GetEnv("RL_SUBSCRIPTION_GET_PARAMS", "CgEBEAE%3D"),
		PlanUsageGetParams:    config.GetEnv("RL_PLAN_USAGE_GET_PARAMS", "CAE%3D"),

		AdminJWTSecret: config.GetEnv("RL_ADMIN_JWT_SECRET", ""),
	}
}
