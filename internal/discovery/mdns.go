// ABOUTME: mDNS advertisement and browsing of termvid remote control endpoints
// ABOUTME: Players advertise _termvid._tcp; the remotes command browses for them
package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/harperreed/termvid/internal/log"
	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service players advertise
const ServiceType = "_termvid._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Session     string
	File        string
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
	server *mdns.Server
}

// Instance describes a discovered player
type Instance struct {
	Name string
	Host string
	Port int
	Info []string
}

// Addr returns host:port
func (i Instance) Addr() string {
	return net.JoinHostPort(i.Host, fmt.Sprint(i.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// TXT returns the TXT records advertised for this player
func (m *Manager) TXT() []string {
	txt := []string{"path=/control"}
	if m.config.Session != "" {
		txt = append(txt, "session="+m.config.Session)
	}
	if m.config.File != "" {
		txt = append(txt, "file="+m.config.File)
	}
	return txt
}

// Advertise announces the remote control endpoint until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.TXT(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}
	m.server = server

	log.Infof("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse queries the local network once for timeout and returns every
// player that answered.
func Browse(ctx context.Context, timeout time.Duration) ([]Instance, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []Instance

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for entry := range entries {
			host := entry.Host
			if entry.AddrV4 != nil {
				host = entry.AddrV4.String()
			}
			found = append(found, Instance{
				Name: entry.Name,
				Host: host,
				Port: entry.Port,
				Info: entry.InfoFields,
			})
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := queryContext(ctx, params)
	close(entries)
	<-collected
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return found, nil
}

func queryContext(ctx context.Context, params *mdns.QueryParam) error {
	done := make(chan error, 1)
	go func() { done <- mdns.Query(params) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Query returns on its own once the timeout passes
		<-done
		return ctx.Err()
	}
}

// Stop withdraws the advertisement
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
