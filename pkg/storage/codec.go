package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/uhyunpark/crossbook/pkg/app/core/orderbook"
)

func encodeTrade(t orderbook.Trade) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trade: %w", err)
	}
	return data, nil
}

func decodeTrade(b []byte) (orderbook.Trade, error) {
	var t orderbook.Trade
	if err := json.Unmarshal(b, &t); err != nil {
		return orderbook.Trade{}, fmt.Errorf("failed to unmarshal trade: %w", err)
	}
	return t, nil
}

func encodeSeq(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

func decodeSeq(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("bad sequence value: %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
