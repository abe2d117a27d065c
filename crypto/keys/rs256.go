// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package keys generates and persists the server's RSA-2048 handshake
// keypair as PKCS#8/SPKI PEM.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// KeyBits is the RSA modulus size used for the handshake keypair.
const KeyBits = 2048

// Generate creates a new RSA-2048 keypair.
func Generate() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("keys: generate: %w", err)
	}
	return priv, nil
}

// LoadPrivatePEM reads a PKCS#8 PEM-encoded private key from path.
func LoadPrivatePEM(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("keys: %s: not a PEM file", path)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keys: %s: not an RSA key", path)
	}
	return rsaKey, nil
}

// SavePrivatePEM writes priv as PKCS#8 PEM to path, atomically (write to a
// temp file in the same directory, then rename) so a crash mid-write never
// leaves a truncated key file behind.
func SavePrivatePEM(path string, priv *rsa.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("keys: marshal private key: %w", err)
	}
	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	return atomicWritePEM(path, block, 0o600)
}

// SavePublicPEM writes the SPKI-encoded public key as PEM to path.
func SavePublicPEM(path string, pub *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return fmt.Errorf("keys: marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return atomicWritePEM(path, block, 0o644)
}

func atomicWritePEM(path string, block *pem.Block, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("keys: create key dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".keytmp-*")
	if err != nil {
		return fmt.Errorf("keys: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := pem.Encode(tmp, block); err != nil {
		tmp.Close()
		return fmt.Errorf("keys: encode PEM: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("keys: close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("keys: chmod key file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("keys: rename key file: %w", err)
	}
	return nil
}

// LoadOrCreate reads the server's RSA keypair from privatePath, generating
// and persisting a fresh one (plus its public counterpart at publicPath) if
// absent.
func LoadOrCreate(privatePath, publicPath string) (*rsa.PrivateKey, error) {
	if _, err := os.Stat(privatePath); err == nil {
		return LoadPrivatePEM(privatePath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("keys: stat private key: %w", err)
	}

	priv, err := Generate()
	if err != nil {
		return nil, err
	}
	if err := SavePrivatePEM(privatePath, priv); err != nil {
		return nil, err
	}
	if err := SavePublicPEM(publicPath, &priv.PublicKey); err != nil {
		return nil, err
	}
	return priv, nil
}
