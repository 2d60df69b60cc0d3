package utils

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Doer 接口，*http.Client 和测试替身都满足
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

var (
	sharedHTTPClient *http.Client
	httpClientOnce   sync.Once
)

// SharedHTTPClient 返回进程内共享的 HTTP 客户端，复用连接池
func SharedHTTPClient() *http.Client {
	httpClientOnce.Do(func() {
		transport := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// 不设置整体超时：视频下载和实时会话可能持续较久，由 context 控制
		sharedHTTPClient = &http.Client{Transport: transport}
	})
	return sharedHTTPClient
}
