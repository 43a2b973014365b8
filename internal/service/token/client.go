package token

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// maxTokenBody 限制读取外部响应的大小，令牌远小于该值。
const maxTokenBody = 64 << 10

// transactionHeader 用于在外部服务日志中关联单次请求。
const transactionHeader = "X-Global-Transaction-Id"

// do 发送请求并返回响应体；非 2xx 状态转换为 *UpstreamError。
func do(client *http.Client, req *http.Request) ([]byte, error) {
	transactionID := uuid.NewString()
	req.Header.Set(transactionHeader, transactionID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s (transaction %s): %w", req.URL.Redacted(), transactionID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBody))
	if err != nil {
		return nil, fmt.Errorf("read %s response (transaction %s): %w", req.URL.Redacted(), transactionID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			Endpoint:   endpointName(req),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return body, nil
}

func endpointName(req *http.Request) string {
	return req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
}

func httpClientOrDefault(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}
	return client
}
