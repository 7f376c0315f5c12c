package pool

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// descriptor is the on-disk shape of one pool entry in a pool list file.
// Pool discovery itself (crawling factory PairCreated logs) is out of
// scope for this repository; it consumes a pool list produced by
// whatever indexer or one-off script an operator already runs, the same
// way the original implementation loaded its path_params from a
// precomputed pools.json rather than rediscovering pairs on every boot.
type descriptor struct {
	Address      string `yaml:"address"`
	Token0       string `yaml:"token0"`
	Token1       string `yaml:"token1"`
	Decimals0    uint8  `yaml:"decimals0"`
	Decimals1    uint8  `yaml:"decimals1"`
	FeeNumerator uint32 `yaml:"fee_numerator"`
}

// LoadList reads a YAML pool list from path and returns the parsed Pool
// set. Entries with an invalid address are skipped with an error appended
// to the returned slice's order preserved for the rest.
func LoadList(path string) ([]Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool list: %w", err)
	}

	var descriptors []descriptor
	if err := yaml.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("parse pool list: %w", err)
	}

	pools := make([]Pool, 0, len(descriptors))
	for _, d := range descriptors {
		if !common.IsHexAddress(d.Address) || !common.IsHexAddress(d.Token0) || !common.IsHexAddress(d.Token1) {
			continue
		}
		fee := d.FeeNumerator
		if fee == 0 {
			fee = 9975 // default 0.25% fee, the common Uniswap-V2-family rate
		}
		pools = append(pools, Pool{
			Address:      common.HexToAddress(d.Address),
			Token0:       common.HexToAddress(d.Token0),
			Token1:       common.HexToAddress(d.Token1),
			Decimals0:    d.Decimals0,
			Decimals1:    d.Decimals1,
			FeeNumerator: fee,
		})
	}
	return pools, nil
}
