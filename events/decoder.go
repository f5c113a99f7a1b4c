// Package events decodes contract events out of transaction receipts.
package events

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Find returns the first log in receipt whose topic zero is the id of ev, or
// nil if there is none.
func Find(receipt *gethtypes.Receipt, ev abi.Event) *gethtypes.Log {
	if receipt == nil {
		return nil
	}
	for _, l := range receipt.Logs {
		if l == nil || len(l.Topics) == 0 {
			continue
		}
		if l.Topics[0] == ev.ID {
			return l
		}
	}
	return nil
}

// Decode looks up eventName in contractABI and decodes the first matching log
// of receipt into a map of argument name to value. Indexed arguments come from
// the topics, the rest from the data payload. An empty map is returned if the
// event is not part of the ABI or no log matches.
func Decode(receipt *gethtypes.Receipt, contractABI abi.ABI, eventName string) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	ev, ok := contractABI.Events[eventName]
	if !ok {
		return out, nil
	}

	l := Find(receipt, ev)
	if l == nil {
		return out, nil
	}

	if err := DecodeLog(l, ev, out); err != nil {
		return make(map[string]interface{}), err
	}
	return out, nil
}

// DecodeLog decodes a single log of ev into out.
func DecodeLog(l *gethtypes.Log, ev abi.Event, out map[string]interface{}) error {
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if len(l.Topics)-1 != len(indexed) {
		return fmt.Errorf("failed to decode %s: expected %d indexed topics, got %d", ev.Name, len(indexed), len(l.Topics)-1)
	}
	if err := abi.ParseTopicsIntoMap(out, indexed, l.Topics[1:]); err != nil {
		return fmt.Errorf("failed to decode %s topics: %w", ev.Name, err)
	}

	if len(l.Data) > 0 {
		if err := ev.Inputs.NonIndexed().UnpackIntoMap(out, l.Data); err != nil {
			return fmt.Errorf("failed to decode %s data: %w", ev.Name, err)
		}
	}
	return nil
}

// Encode builds the log ev would emit from address with the given argument
// values. It is the inverse of DecodeLog.
func Encode(address common.Address, ev abi.Event, values map[string]interface{}) (*gethtypes.Log, error) {
	topics := []common.Hash{ev.ID}
	var data []interface{}

	for _, arg := range ev.Inputs {
		v, ok := values[arg.Name]
		if !ok {
			return nil, fmt.Errorf("missing value for %s.%s", ev.Name, arg.Name)
		}
		if !arg.Indexed {
			data = append(data, v)
			continue
		}
		t, err := abi.MakeTopics([]interface{}{v})
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s.%s topic: %w", ev.Name, arg.Name, err)
		}
		topics = append(topics, t[0][0])
	}

	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s data: %w", ev.Name, err)
	}

	return &gethtypes.Log{Address: address, Topics: topics, Data: packed}, nil
}
