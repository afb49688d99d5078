// Package drivers maps exchange names to their driver constructors.
package drivers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/navid-fn/marketarchive/internal/crawler"
	"github.com/navid-fn/marketarchive/internal/drivers/binance"
	"github.com/navid-fn/marketarchive/internal/drivers/bitget"
	"github.com/navid-fn/marketarchive/internal/drivers/bitstamp"
)

type constructor func(opts crawler.Options) (crawler.Exchange, error)

var registry = map[string]constructor{
	bitstamp.Name: func(opts crawler.Options) (crawler.Exchange, error) { return bitstamp.NewBitstamp(opts) },
	bitget.Name:   func(opts crawler.Options) (crawler.Exchange, error) { return bitget.NewBitget(opts) },
	binance.Name:  func(opts crawler.Options) (crawler.Exchange, error) { return binance.NewBinance(opts) },
}

// New builds the named exchange driver.
func New(name string, opts crawler.Options) (crawler.Exchange, error) {
	build, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return build(opts)
}

// Names lists the supported exchanges.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
