// Package discovery 通过 mDNS 在局域网内广播和发现 docqa 服务
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/log"
)

const (
	// ServiceType mDNS 服务类型
	ServiceType = "_docqa._tcp"
	// Domain mDNS 域
	Domain = "local."
)

// Service 发现到的服务
type Service struct {
	Instance string            `json:"instance"`
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	Addrs    []string          `json:"addrs"`
	Txt      map[string]string `json:"txt"`
}

// Advertiser mDNS 服务广播器
type Advertiser struct {
	mu       sync.Mutex
	server   *zeroconf.Server
	enabled  bool
	instance string
	port     int
	txt      []string
	logger   *slog.Logger
}

// NewAdvertiser 按配置创建广播器，未启用时 Start 为空操作
func NewAdvertiser(cfg *config.Config) (*Advertiser, error) {
	port, err := ParsePort(cfg.Server.HTTPPort)
	if err != nil {
		return nil, err
	}
	instance := cfg.Discovery.InstanceName
	if instance == "" {
		instance = "docqa"
	}
	return &Advertiser{
		enabled:  cfg.Discovery.Enabled,
		instance: instance,
		port:     port,
		txt: []string{
			"api=/api/v1",
			"vector=" + cfg.Vector.Backend,
			"llm=" + cfg.LLM.Provider,
		},
		logger: log.NewModuleLogger("discovery", "advertiser"),
	}, nil
}

// Start 开始广播
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled || a.server != nil {
		return nil
	}

	server, err := zeroconf.Register(a.instance, ServiceType, Domain, a.port, a.txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	a.server = server

	a.logger.Info("mDNS advertiser started",
		"instance", a.instance,
		"port", a.port,
		"txt_records", a.txt,
	)
	return nil
}

// Stop 停止广播
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.logger.Info("mDNS advertiser stopped")
}

// Discover 在 timeout 内浏览局域网中的 docqa 服务
func Discover(ctx context.Context, timeout time.Duration) ([]Service, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 10)
	var (
		mu       sync.Mutex
		services []Service
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		for entry := range entries {
			if s, ok := parseEntry(entry); ok {
				mu.Lock()
				services = append(services, s)
				mu.Unlock()
			}
		}
	}()

	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := resolver.Browse(browseCtx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse services: %w", err)
	}

	<-browseCtx.Done()
	// Browse 在 ctx 结束后关闭 entries
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	sort.Slice(services, func(i, j int) bool { return services[i].Instance < services[j].Instance })
	return services, nil
}

func parseEntry(entry *zeroconf.ServiceEntry) (Service, bool) {
	if entry == nil {
		return Service{}, false
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	if len(addrs) == 0 {
		return Service{}, false
	}

	return Service{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     entry.Port,
		Addrs:    addrs,
		Txt:      ParseTxt(entry.Text),
	}, true
}

// ParseTxt 解析 key=value 形式的 TXT 记录
func ParseTxt(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		key, value, ok := strings.Cut(r, "=")
		if !ok || key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// ParsePort 从 ":8080" 或 "host:8080" 中取出端口
func ParsePort(addr string) (int, error) {
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in %q", addr)
	}
	return port, nil
}
