// Package transport implements the wire protocol of §6: a small, fixed
// protobuf 3 schema carried over gRPC's bidi-streaming Network.connect
// RPC. Rather than depend on protoc-generated code, messages hand-encode
// themselves with google.golang.org/protobuf/encoding/protowire — the
// same low-level wire primitives codegen such as vtprotobuf (carried as
// an indirect dependency elsewhere in the pack) builds its Marshal/
// Unmarshal methods on top of.
package transport

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Transaction corresponds to `message Transaction { bytes data = 1; }`.
type Transaction struct {
	Data []byte
}

func (m *Transaction) Marshal() ([]byte, error) {
	var b []byte
	if len(m.Data) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Data)
	}
	return b, nil
}

func (m *Transaction) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("transport: bad tag in Transaction: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("transport: bad data field: %w", protowire.ParseError(n))
			}
			m.Data = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("transport: bad unknown field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// TransactionListQuery corresponds to
// `message TransactionListQuery { int64 block_date = 1; }`.
type TransactionListQuery struct {
	BlockDate int64
}

func (m *TransactionListQuery) Marshal() ([]byte, error) {
	var b []byte
	if m.BlockDate != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.BlockDate))
	}
	return b, nil
}

func (m *TransactionListQuery) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("transport: bad tag in TransactionListQuery: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("transport: bad block_date field: %w", protowire.ParseError(n))
			}
			m.BlockDate = int64(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("transport: bad unknown field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// TransactionList corresponds to
// `message TransactionList { int64 block_date = 1; repeated Transaction transactions = 2; }`.
type TransactionList struct {
	BlockDate    int64
	Transactions []*Transaction
}

func (m *TransactionList) Marshal() ([]byte, error) {
	var b []byte
	if m.BlockDate != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.BlockDate))
	}
	for _, tx := range m.Transactions {
		txBytes, err := tx.Marshal()
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, txBytes)
	}
	return b, nil
}

func (m *TransactionList) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("transport: bad tag in TransactionList: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("transport: bad block_date field: %w", protowire.ParseError(n))
			}
			m.BlockDate = int64(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("transport: bad transactions field: %w", protowire.ParseError(n))
			}
			tx := &Transaction{}
			if err := tx.Unmarshal(v); err != nil {
				return err
			}
			m.Transactions = append(m.Transactions, tx)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("transport: bad unknown field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}

// NetworkMessage corresponds to the top-level oneof envelope:
//
//	message NetworkMessage { oneof message {
//	    TransactionList      transaction_list       = 1;
//	    TransactionListQuery transaction_list_query = 2;
//	} }
//
// Additional variants may appear on the wire (advertise_hash,
// transaction_payload_query, ...); unrecognized field numbers are skipped
// rather than rejected, matching spec §6's "MAY be ignored" note.
type NetworkMessage struct {
	TransactionList      *TransactionList
	TransactionListQuery *TransactionListQuery
}

func (m *NetworkMessage) Marshal() ([]byte, error) {
	var b []byte
	if m.TransactionList != nil {
		inner, err := m.TransactionList.Marshal()
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	if m.TransactionListQuery != nil {
		inner, err := m.TransactionListQuery.Marshal()
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	return b, nil
}

func (m *NetworkMessage) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("transport: bad tag in NetworkMessage: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("transport: bad transaction_list field: %w", protowire.ParseError(n))
			}
			inner := &TransactionList{}
			if err := inner.Unmarshal(v); err != nil {
				return err
			}
			m.TransactionList = inner
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("transport: bad transaction_list_query field: %w", protowire.ParseError(n))
			}
			inner := &TransactionListQuery{}
			if err := inner.Unmarshal(v); err != nil {
				return err
			}
			m.TransactionListQuery = inner
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("transport: bad unknown field: %w", protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
