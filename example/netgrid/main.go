package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/kisun-bit/netgrid/sys/info"
	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/kisun-bit/netgrid/sys/info/network/oui"
	"github.com/kisun-bit/netgrid/util/basic"
	"github.com/kisun-bit/netgrid/util/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	Config     string `short:"c" long:"config" description:"YAML config file"`
	Discovery  string `short:"d" long:"discovery" description:"discovery strategy" choice:"auto" choice:"iproute" choice:"netlink" choice:"sysfs"`
	Interface  string `short:"i" long:"interface" description:"show details of a single interface"`
	Sort       string `short:"s" long:"sort" description:"sort order" choice:"name" choice:"state" default:"name"`
	Reverse    bool   `short:"r" long:"reverse" description:"reverse sort order"`
	UpOnly     bool   `long:"up" description:"only interfaces that are UP"`
	Physical   bool   `long:"physical" description:"only physical interfaces"`
	ShowIPv6   bool   `long:"show-ipv6" description:"show IPv6 addresses in addition to IPv4"`
	NoVendors  bool   `long:"no-vendors" description:"disable vendor lookup"`
	Offline    bool   `long:"offline" description:"never query remote vendor sources"`
	CacheDir   string `long:"cache-dir" description:"vendor cache directory"`
	ClearCache bool   `long:"clear-cache" description:"clear vendor caches and exit"`
	Summary    bool   `long:"show-summary" description:"print interface summary"`
	JSON       bool   `short:"j" long:"json" description:"print JSON instead of a table"`
	Serve      string `long:"serve" description:"serve /metrics, pprof and /api/v1/interfaces on this address"`
	Mock       bool   `short:"m" long:"mock" description:"use built-in mock interfaces"`
	LogLevel   string `short:"l" long:"log-level" description:"log level (default warn or $NETGRID_LOG_LEVEL)"`
}

func main() {
	var opt options
	parser := flags.NewParser(&opt, flags.Default)
	parser.Name = "netgrid"
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opt.LogLevel != "" {
		if err := logger.SetLevel(opt.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "netgrid: %v\n", err)
			os.Exit(2)
		}
	}

	if err := run(opt); err != nil {
		logger.Errorf("netgrid: %v", err)
		os.Exit(1)
	}
}

func loadConfig(opt options) (info.Config, error) {
	cfg := info.ConfigFromEnv()
	if opt.Config != "" {
		c, err := info.LoadConfig(opt.Config)
		if err != nil {
			return cfg, err
		}
		cfg = *c
		cfg.ApplyEnv(os.Getenv)
	}
	if opt.Discovery != "" {
		cfg.Discovery = opt.Discovery
	}
	if opt.Mock {
		cfg.Mock.Enabled = true
	}
	if opt.NoVendors {
		cfg.Vendor.Enabled = false
	}
	if opt.Offline {
		cfg.Vendor.Offline = true
	}
	if opt.CacheDir != "" {
		cfg.Vendor.CacheDir = opt.CacheDir
	}
	return cfg, cfg.Validate()
}

func run(opt options) error {
	cfg, err := loadConfig(opt)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collectorOpts := []info.Option{info.WithRegisterer(reg)}
	if cfg.Vendor.Enabled || opt.ClearCache {
		resolver, e := oui.NewResolver(
			oui.WithCacheDir(cfg.Vendor.CacheDir),
			oui.WithOffline(cfg.Vendor.Offline),
			oui.WithSourceTimeout(cfg.Vendor.SourceTimeout),
			oui.WithRegisterer(reg),
		)
		if e != nil {
			return e
		}
		if opt.ClearCache {
			if e = resolver.ClearCache(); e != nil {
				return e
			}
			fmt.Printf("vendor caches in %s cleared\n", resolver.CacheDir())
			return nil
		}
		collectorOpts = append(collectorOpts, info.WithVendorResolver(resolver))
	} else {
		collectorOpts = append(collectorOpts, info.WithVendorResolver(nil))
	}

	collector, err := info.NewCollector(cfg, collectorOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opt.Serve != "" {
		return serve(ctx, opt.Serve, collector, reg)
	}

	if opt.Interface != "" {
		iface, ok := collector.GetInterfaceDetails(ctx, opt.Interface)
		if !ok {
			return errors.Errorf("interface %s not found", opt.Interface)
		}
		printDetails(os.Stdout, iface)
		return nil
	}

	coll := collector.GetAllInterfaces(ctx)
	if opt.UpOnly {
		coll = coll.FilterUp()
	}
	if opt.Physical {
		coll = coll.FilterPhysical()
	}
	if opt.Sort == "state" {
		coll = coll.SortByState(opt.Reverse)
	} else {
		coll = coll.SortByName(opt.Reverse)
	}

	if opt.JSON {
		out, e := coll.JSON()
		if e != nil {
			return e
		}
		fmt.Println(out)
		return nil
	}
	printTable(os.Stdout, coll, opt.ShowIPv6)
	if opt.Summary {
		s := coll.Summary()
		fmt.Printf("\n%d interfaces, %d up, %d down\n", s.Count, s.UpCount, s.DownCount)
	}
	return nil
}

func serve(ctx context.Context, addr string, collector *info.Collector, reg *prometheus.Registry) error {
	srv := basic.NewDebugServer(addr, reg, func(g *gin.RouterGroup) {
		g.GET("/interfaces", func(c *gin.Context) {
			var coll *network.Collection
			if c.Query("refresh") != "" {
				coll = collector.Rescan(c.Request.Context())
			} else {
				coll = collector.GetAllInterfaces(c.Request.Context())
			}
			out, err := coll.JSON()
			if err != nil {
				c.String(http.StatusInternalServerError, err.Error())
				return
			}
			c.Data(http.StatusOK, "application/json", []byte(out))
		})
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("serving on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printTable(w *os.File, coll *network.Collection, showIPv6 bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSTATE\tSPEED\tDUPLEX\tMAC\tVENDOR\tIP CONFIG\tADDRESSES")
	for _, i := range coll.Interfaces() {
		addrs := make([]string, 0, len(i.IPAddresses))
		for _, a := range i.IPAddresses {
			if showIPv6 || !strings.Contains(a, ":") {
				addrs = append(addrs, a)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i.Name, i.Type, i.LinkState, dash(i.SpeedString()), i.Duplex,
			dash(i.HardwareAddr), dash(i.Vendor), i.IPConfigType, dash(strings.Join(addrs, ",")))
	}
	_ = tw.Flush()
}

func printDetails(w *os.File, i network.Interface) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Name", i.Name},
		{"Type", string(i.Type)},
		{"State", string(i.LinkState)},
		{"MAC", dash(i.HardwareAddr)},
		{"Vendor", dash(i.Vendor)},
		{"Speed", dash(i.SpeedString())},
		{"Duplex", string(i.Duplex)},
		{"MTU", fmt.Sprint(i.MTU)},
		{"Driver", dash(i.Driver)},
		{"IP config", string(i.IPConfigType)},
		{"Addresses", dash(strings.Join(i.IPAddresses, ", "))},
		{"Flags", dash(strings.Join(i.Flags, ","))},
		{"Description", dash(i.Description)},
	}
	keys := make([]string, 0, len(i.ExtraData))
	for k := range i.ExtraData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, [2]string{k, i.ExtraData[k]})
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	_ = tw.Flush()
}
