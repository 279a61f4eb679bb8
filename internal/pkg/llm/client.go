package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/virgo-whisper/backend/config"
	"k8s.io/klog/v2"
)

// ErrEmptyResponse 模型返回了空内容
var ErrEmptyResponse = errors.New("no response from LLM")

// Generator eino ChatModel 中本服务用到的部分
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Client 对 OpenAI 兼容接口（默认 Cerebras）的一次性补全调用
type Client struct {
	generator Generator
	model     string
}

// NewClient 根据配置创建 eino OpenAI ChatModel
func NewClient(cfg *config.Config) (*Client, error) {
	chatConfig := &openai.ChatModelConfig{
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.Model,
	}
	if cfg.LLM.APIURL != "" {
		chatConfig.BaseURL = cfg.LLM.APIURL
	}
	if cfg.LLM.MaxTokens > 0 {
		maxTokens := cfg.LLM.MaxTokens
		chatConfig.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(context.Background(), chatConfig)
	if err != nil {
		klog.Errorf("[LLM] 创建 ChatModel 失败: %v", err)
		return nil, err
	}

	klog.V(6).Infof("[LLM] ChatModel 创建成功: model=%s, baseURL=%s", cfg.LLM.Model, cfg.LLM.APIURL)
	return NewClientWithGenerator(chatModel, cfg.LLM.Model), nil
}

// NewClientWithGenerator 使用已有的模型实例
func NewClientWithGenerator(generator Generator, modelName string) *Client {
	return &Client{generator: generator, model: modelName}
}

// Model 模型名称
func (c *Client) Model() string {
	return c.model
}

// Complete 发送消息并返回去掉首尾空白的回复文本
func (c *Client) Complete(ctx context.Context, messages []*schema.Message, temperature float32) (string, error) {
	klog.V(6).Infof("[LLM] Generate 开始: model=%s, messages=%d, temperature=%.1f", c.model, len(messages), temperature)
	for i, msg := range messages {
		klog.V(8).Infof("[LLM]   Message[%d]: role=%s, content=%s", i, msg.Role, msg.Content)
	}

	resp, err := c.generator.Generate(ctx, messages, model.WithTemperature(temperature))
	if err != nil {
		klog.Errorf("[LLM] Generate 失败: %v", err)
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(resp.Content)
	klog.V(6).Infof("[LLM] Generate 完成: responseLength=%d", len(content))
	return content, nil
}

// Chat 系统提示词 + 可选的用户消息
func (c *Client) Chat(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	messages := []*schema.Message{schema.SystemMessage(systemPrompt)}
	if userPrompt != "" {
		messages = append(messages, schema.UserMessage(userPrompt))
	}
	return c.Complete(ctx, messages, temperature)
}
