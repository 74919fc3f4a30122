// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package credential

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/iotexproject/iotex-sbt/pkg/util/byteutil"
)

const (
	recordLength     = 4
	holderLength     = 8 + recordLength
	credentialLength = common.AddressLength + recordLength
)

var errInvalidBytes = errors.New("invalid serialized bytes")

type (
	// Record is the attribute tuple of a credential
	Record struct {
		Active      bool
		BlockNumber uint16
		Tier        Tier
	}

	// Credential is a minted credential and its current custodian
	Credential struct {
		ID     uint64
		Holder common.Address
		Record
	}
)

// Serialize serializes the record into active(1) | blockNumber(2) | tier(1)
func (r Record) Serialize() []byte {
	b := make([]byte, 0, recordLength)
	b = append(b, byteutil.BoolToByte(r.Active))
	b = append(b, byteutil.Uint16ToBytesBigEndian(r.BlockNumber)...)
	return append(b, byte(r.Tier))
}

// Deserialize deserializes the record
func (r *Record) Deserialize(b []byte) error {
	if len(b) != recordLength {
		return errors.Wrapf(errInvalidBytes, "record length %d", len(b))
	}
	if b[0] > 1 {
		return errors.Wrapf(errInvalidBytes, "active flag %d", b[0])
	}
	tier := Tier(b[3])
	if !tier.IsValid() {
		return errors.Wrapf(ErrInvalidTier, "tier %d", b[3])
	}
	r.Active = b[0] == 1
	r.BlockNumber = byteutil.BytesToUint16BigEndian(b[1:3])
	r.Tier = tier
	return nil
}

// Clone clones the credential
func (c *Credential) Clone() *Credential {
	clone := *c
	return &clone
}

// Serialize serializes the credential index value holder(20) | record(4)
func (c *Credential) Serialize() []byte {
	return append(c.Holder.Bytes(), c.Record.Serialize()...)
}

// Deserialize deserializes the credential index value
func (c *Credential) Deserialize(b []byte) error {
	if len(b) != credentialLength {
		return errors.Wrapf(errInvalidBytes, "credential length %d", len(b))
	}
	if err := c.Record.Deserialize(b[common.AddressLength:]); err != nil {
		return err
	}
	c.Holder = common.BytesToAddress(b[:common.AddressLength])
	return nil
}

// holder index value id(8) | record(4)
func serializeHolder(id uint64, r Record) []byte {
	return append(byteutil.Uint64ToBytesBigEndian(id), r.Serialize()...)
}

func deserializeHolder(b []byte) (uint64, Record, error) {
	var r Record
	if len(b) != holderLength {
		return 0, r, errors.Wrapf(errInvalidBytes, "holder length %d", len(b))
	}
	if err := r.Deserialize(b[8:]); err != nil {
		return 0, r, err
	}
	return byteutil.BytesToUint64BigEndian(b[:8]), r, nil
}
