package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	STT          STTConfig          `yaml:"stt"`
	LLM          LLMConfig          `yaml:"llm"`
	TTS          TTSConfig          `yaml:"tts"`
	Conversation ConversationConfig `yaml:"conversation"`
	Protocols    ProtocolsConfig    `yaml:"protocols"`
	Data         DataConfig         `yaml:"data"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

type DatabaseConfig struct {
	Type            string `yaml:"type"` // firestore, sqlite, mysql
	DSN             string `yaml:"dsn"`
	CredentialsFile string `yaml:"credentials_file"` // firestore 服务账号文件
	ProjectID       string `yaml:"project_id"`       // 为空时从服务账号文件中推断
}

type STTConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type LLMConfig struct {
	APIURL    string `yaml:"api_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type TTSConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	VoiceID      string `yaml:"voice_id"`
	ModelID      string `yaml:"model_id"`
	OutputFormat string `yaml:"output_format"`
}

type ConversationConfig struct {
	ActiveWindow time.Duration `yaml:"active_window"`
	WakeWord     string        `yaml:"wake_word"`
}

type ProtocolsConfig struct {
	SeedFile string `yaml:"seed_file"` // 存储中没有流程时从该 YAML 导入
}

type DataConfig struct {
	Dir       string `yaml:"dir"`
	UploadDir string `yaml:"upload_dir"`
}

var (
	cfg  *Config
	once sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		cfg = loadConfig()
	})
	return cfg
}

func loadConfig() *Config {
	// .env 中的值不会覆盖已存在的环境变量
	dotenvPath := os.Getenv("DOTENV_PATH")
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
		klog.Warningf("加载 .env 文件失败: path=%s, error=%v", dotenvPath, err)
	}

	config := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			klog.Errorf("解析配置文件失败: path=%s, error=%v", configPath, err)
		}
	}

	applyEnv(config)

	if config.Data.UploadDir == "" {
		config.Data.UploadDir = filepath.Join(config.Data.Dir, "uploads")
	}
	if config.Conversation.ActiveWindow <= 0 {
		config.Conversation.ActiveWindow = 120 * time.Second
	}

	return config
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "5000",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Type:            "firestore",
			DSN:             "./data/virgo.db",
			CredentialsFile: "./serviceAccountKey.json",
		},
		STT: STTConfig{
			BaseURL: "https://api.assemblyai.com",
		},
		LLM: LLMConfig{
			APIURL:    "https://api.cerebras.ai/v1",
			Model:     "llama3.1-8b",
			MaxTokens: 1024,
		},
		TTS: TTSConfig{
			BaseURL:      "https://api.elevenlabs.io/v1",
			VoiceID:      "JBFqnCBsd6RMkjVDRZzb",
			ModelID:      "eleven_multilingual_v2",
			OutputFormat: "mp3_44100_128",
		},
		Conversation: ConversationConfig{
			ActiveWindow: 120 * time.Second,
			WakeWord:     "virgo",
		},
		Data: DataConfig{
			Dir:       "./data",
			UploadDir: "",
		},
	}
}

// applyEnv 环境变量优先级高于配置文件
func applyEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}

	// 三个外部服务的凭证
	if key := os.Getenv("ASSEMBLYAI_API_KEY"); key != "" {
		config.STT.APIKey = key
	}
	if key := os.Getenv("CEREBRAS_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if baseURL := os.Getenv("CEREBRAS_BASE_URL"); baseURL != "" {
		config.LLM.APIURL = baseURL
	}
	if model := os.Getenv("CEREBRAS_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		config.TTS.APIKey = key
	}
	if voice := os.Getenv("ELEVENLABS_VOICE_ID"); voice != "" {
		config.TTS.VoiceID = voice
	}

	// 文档存储
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if dbDSN := os.Getenv("DB_DSN"); dbDSN != "" {
		config.Database.DSN = dbDSN
	}
	if credFile := os.Getenv("FIREBASE_CREDENTIALS_FILE"); credFile != "" {
		config.Database.CredentialsFile = credFile
	}
	if projectID := os.Getenv("FIREBASE_PROJECT_ID"); projectID != "" {
		config.Database.ProjectID = projectID
	}

	if seedFile := os.Getenv("PROTOCOL_SEED_FILE"); seedFile != "" {
		config.Protocols.SeedFile = seedFile
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		config.Data.Dir = dataDir
	}
	if uploadDir := os.Getenv("UPLOAD_DIR"); uploadDir != "" {
		config.Data.UploadDir = uploadDir
	}
}

// HasSTT 语音识别凭证是否齐全
func (c *Config) HasSTT() bool {
	return c.STT.APIKey != ""
}

// HasLLM 大模型凭证是否齐全
func (c *Config) HasLLM() bool {
	return c.LLM.APIKey != ""
}

// HasTTS 语音合成凭证是否齐全
func (c *Config) HasTTS() bool {
	return c.TTS.APIKey != ""
}

// HasStoreCredentials firestore 需要服务账号文件，SQL 存储只需要 DSN
func (c *Config) HasStoreCredentials() bool {
	if c.Database.Type != "firestore" {
		return c.Database.DSN != ""
	}
	if c.Database.CredentialsFile == "" {
		return false
	}
	_, err := os.Stat(c.Database.CredentialsFile)
	return err == nil
}
