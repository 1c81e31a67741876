package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrGatewayUnavailable 生成后端调用失败
var ErrGatewayUnavailable = errors.New("问答生成服务不可用")

// AnswerGateway 问答生成后端接口
// 输入问题与检索上下文，返回生成的回答；本仓库只消费文本补全能力
type AnswerGateway interface {
	GenerateAnswer(ctx context.Context, question, context_ string) (string, error)
}

// answerPromptTemplate 生成回答的提示词模板
const answerPromptTemplate = `You are a helpful assistant. Use the context below to answer the user's question.

Book content:
%s

Question: %s

Answer:`

// OpenAIGateway OpenAI 兼容接口的生成后端
// baseURL 可指向 OpenRouter 等兼容服务
type OpenAIGateway struct {
	client     *openai.Client
	model      string
	maxRetries int
}

// NewOpenAIGateway 创建生成后端客户端
func NewOpenAIGateway(apiKey, baseURL, model string, maxRetries int) *OpenAIGateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &OpenAIGateway{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		maxRetries: maxRetries,
	}
}

// GenerateAnswer 根据上下文生成回答
func (g *OpenAIGateway) GenerateAnswer(ctx context.Context, question, context_ string) (string, error) {
	prompt := fmt.Sprintf(answerPromptTemplate, context_, question)

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	// 调用 API（带指数退避重试）
	var resp openai.ChatCompletionResponse
	var err error
	for i := 0; i <= g.maxRetries; i++ {
		resp, err = g.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		if !isRetryableError(err) {
			break
		}
		if i < g.maxRetries {
			backoff := time.Duration(1<<uint(i)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
			}
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: 返回结果为空", ErrGatewayUnavailable)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// isRetryableError 判断错误是否值得重试
// 限流与服务端错误可重试，认证等客户端错误不重试
func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	// 非 API 错误（网络抖动等）默认重试
	return true
}
