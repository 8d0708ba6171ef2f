package automation

import "fmt"

// BehaviorKind selects the planning strategy of an automation
type BehaviorKind string

const (
	BehaviorMining   BehaviorKind = "mining"
	BehaviorTrading  BehaviorKind = "trading"
	BehaviorContract BehaviorKind = "contract"
	BehaviorIdle     BehaviorKind = "idle"
)

// ParseBehaviorKind validates a behavior name
func ParseBehaviorKind(s string) (BehaviorKind, error) {
	switch kind := BehaviorKind(s); kind {
	case BehaviorMining, BehaviorTrading, BehaviorContract, BehaviorIdle:
		return kind, nil
	}
	return "", fmt.Errorf("unknown behavior %q (expected mining, trading, contract or idle)", s)
}

// MiningPolicy bounds the decisions of the mining behavior
type MiningPolicy struct {
	AutoSellWhenFull bool   `json:"autoSellWhenFull" mapstructure:"autoSellWhenFull"`
	MinFuelPercent   int    `json:"minFuelPercent" mapstructure:"minFuelPercent" validate:"gte=0,lte=100"`
	MaxCargoPercent  int    `json:"maxCargoPercent" mapstructure:"maxCargoPercent" validate:"gte=0,lte=100"`
	MaxCredits       int64  `json:"maxCredits" mapstructure:"maxCredits" validate:"gte=0"`
	StopOnMaxCargo   bool   `json:"stopOnMaxCargo" mapstructure:"stopOnMaxCargo"`
	StopOnLowFuel    bool   `json:"stopOnLowFuel" mapstructure:"stopOnLowFuel"`
	AsteroidWaypoint string `json:"asteroidWaypoint,omitempty" mapstructure:"asteroidWaypoint"`
}

// TradingPolicy bounds the decisions of the trading behavior
type TradingPolicy struct {
	MaxBuyPriceDeviationPercent int     `json:"maxBuyPriceDeviationPercent" mapstructure:"maxBuyPriceDeviationPercent" validate:"gte=0"`
	MinProfitMarginPercent      int     `json:"minProfitMarginPercent" mapstructure:"minProfitMarginPercent" validate:"gte=0"`
	ReserveCredits              int64   `json:"reserveCredits" mapstructure:"reserveCredits" validate:"gte=0"`
	MaxDistance                 float64 `json:"maxDistance" mapstructure:"maxDistance" validate:"gte=0"`
}

// ContractPolicy bounds the decisions of the contract behavior
type ContractPolicy struct {
	AutoAccept       bool  `json:"autoAccept" mapstructure:"autoAccept"`
	MaxDeadlineDays  int   `json:"maxDeadlineDays" mapstructure:"maxDeadlineDays" validate:"gte=0"`
	MinRewardCredits int64 `json:"minRewardCredits" mapstructure:"minRewardCredits" validate:"gte=0"`
}

// Policy holds the section matching the automation's behavior; the others are nil
type Policy struct {
	Mining   *MiningPolicy   `json:"mining,omitempty"`
	Trading  *TradingPolicy  `json:"trading,omitempty"`
	Contract *ContractPolicy `json:"contract,omitempty"`
}

func DefaultMiningPolicy() MiningPolicy {
	return MiningPolicy{
		AutoSellWhenFull: true,
		MinFuelPercent:   10,
		MaxCargoPercent:  90,
		StopOnMaxCargo:   true,
		StopOnLowFuel:    true,
	}
}

func DefaultTradingPolicy() TradingPolicy {
	return TradingPolicy{
		MaxBuyPriceDeviationPercent: 10,
		MinProfitMarginPercent:      5,
	}
}

func DefaultContractPolicy() ContractPolicy {
	return ContractPolicy{
		MaxDeadlineDays: 7,
	}
}

// DefaultPolicy returns the defaults for a behavior kind
func DefaultPolicy(kind BehaviorKind) Policy {
	switch kind {
	case BehaviorMining:
		p := DefaultMiningPolicy()
		return Policy{Mining: &p}
	case BehaviorTrading:
		p := DefaultTradingPolicy()
		return Policy{Trading: &p}
	case BehaviorContract:
		p := DefaultContractPolicy()
		return Policy{Contract: &p}
	}
	return Policy{}
}

// Section returns a pointer to the section used by kind, or nil for idle
func (p *Policy) Section(kind BehaviorKind) interface{} {
	switch kind {
	case BehaviorMining:
		return p.Mining
	case BehaviorTrading:
		return p.Trading
	case BehaviorContract:
		return p.Contract
	}
	return nil
}

// Clone returns a deep copy so snapshots never alias the live policy
func (p Policy) Clone() Policy {
	var out Policy
	if p.Mining != nil {
		m := *p.Mining
		out.Mining = &m
	}
	if p.Trading != nil {
		t := *p.Trading
		out.Trading = &t
	}
	if p.Contract != nil {
		c := *p.Contract
		out.Contract = &c
	}
	return out
}
