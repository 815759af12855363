// Copyright (c) 2025 The NuCypher KMS developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package contracts ships the interfaces of the token, escrow and policy
// manager contracts. Bytecode is produced by the solidity build and loaded from
// disk when deploying.
package contracts

import (
	"bytes"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	TokenName         = "NuCypherKMSToken"
	EscrowName        = "MinersEscrow"
	PolicyManagerName = "PolicyManager"
)

// Names lists the contracts in deployment order.
var Names = []string{TokenName, EscrowName, PolicyManagerName}

//go:embed compiled/*.abi
var compiled embed.FS

var (
	parsed   = make(map[string]*abi.ABI)
	parsedMu sync.Mutex
)

// ABIJSON returns the raw ABI definition of the named contract.
func ABIJSON(name string) ([]byte, error) {
	data, err := compiled.ReadFile("compiled/" + name + ".abi")
	if err != nil {
		return nil, fmt.Errorf("unknown contract %q", name)
	}
	return data, nil
}

// ABI returns the parsed ABI of the named contract.
func ABI(name string) (*abi.ABI, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()

	if a, ok := parsed[name]; ok {
		return a, nil
	}
	data, err := ABIJSON(name)
	if err != nil {
		return nil, err
	}
	a, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse ABI for '%s': %w", name, err)
	}
	parsed[name] = &a
	return &a, nil
}

// MustABI is like ABI but panics on error. Only use it with the names above.
func MustABI(name string) *abi.ABI {
	a, err := ABI(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Artifact is a deployable contract.
type Artifact struct {
	Name     string
	ABI      *abi.ABI
	Bytecode []byte
}

// NewArtifact pairs the named contract's ABI with creation bytecode.
func NewArtifact(name string, bytecode []byte) (*Artifact, error) {
	a, err := ABI(name)
	if err != nil {
		return nil, err
	}
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("empty bytecode for '%s'", name)
	}
	return &Artifact{Name: name, ABI: a, Bytecode: bytecode}, nil
}

// LoadArtifact reads <dir>/<name>.bin, a hex encoded creation bytecode as
// emitted by solc --bin.
func LoadArtifact(dir, name string) (*Artifact, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name+".bin"))
	if err != nil {
		return nil, fmt.Errorf("load bytecode for '%s': %w", name, err)
	}
	code, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode bytecode for '%s': %w", name, err)
	}
	return NewArtifact(name, code)
}

// LoadArtifacts loads every contract from dir.
func LoadArtifacts(dir string) (map[string]*Artifact, error) {
	all := make(map[string]*Artifact, len(Names))
	for _, name := range Names {
		a, err := LoadArtifact(dir, name)
		if err != nil {
			return nil, err
		}
		all[name] = a
	}
	return all, nil
}
