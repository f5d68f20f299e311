// Package singleton 用固定端口保证同一台机器上只运行一个服务实例
package singleton

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// HealthCheckTimeout 探测已有实例的超时时间
const HealthCheckTimeout = 2 * time.Second

// ErrUnhealthyInstance 端口被占用，但占用者不是健康的服务实例
var ErrUnhealthyInstance = errors.New("port is in use by an unhealthy process")

// wsaeaddrinuse Windows 下的 WSAEADDRINUSE
const wsaeaddrinuse = syscall.Errno(10048)

// CheckAndLock 尝试占用端口
// 端口空闲时返回 listener；已有健康实例时返回 nil, nil，调用方应直接退出
func CheckAndLock(port string) (net.Listener, error) {
	listener, err := net.Listen("tcp", port)
	if err == nil {
		return listener, nil
	}
	if !isAddrInUse(err) {
		return nil, fmt.Errorf("failed to listen on %s: %w", port, err)
	}
	if isInstanceRunning(port) {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnhealthyInstance, port)
}

func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.EADDRINUSE) || errors.Is(err, wsaeaddrinuse)
}

// isInstanceRunning 通过 /health 判断端口上是否是本服务
func isInstanceRunning(port string) bool {
	client := &http.Client{Timeout: HealthCheckTimeout}

	resp, err := client.Get(healthURL(port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false
	}
	return body.Status == "ok"
}

// healthURL 兼容 ":19970" 和 "host:port" 两种写法
func healthURL(port string) string {
	host := port
	if strings.HasPrefix(port, ":") {
		host = "localhost" + port
	}
	return "http://" + host + "/health"
}
