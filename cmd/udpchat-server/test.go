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

package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/agonych/udpchat-ai/crypto"
	"github.com/agonych/udpchat-ai/crypto/keys"
)

// testEntryPoint is a named smoke test the `test <name>` subcommand can
// dispatch to, mirroring main.py's `__import__(f"tests.{test_name}")`.
type testEntryPoint func(cfg *testConfig) error

var testRegistry = map[string]testEntryPoint{
	"hello":      runHelloTest,
	"encryption": runEncryptionTest,
}

type testConfig struct {
	ip   string
	port int
}

var testCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Run a named smoke test",
	Long: `test dispatches to one of the built-in smoke tests:
  hello       - handshake + encrypted HELLO round trip against a running server
  encryption  - local round trip of the RSA/AES primitives, no network`,
	Args: cobra.ExactArgs(1),
	RunE: runTest,
}

func init() {
	testCmd.Flags().String("ip", "", "server IP to connect to (hello test only; defaults to SERVER_IP)")
	testCmd.Flags().Int("port", 0, "server port to connect to (hello test only; defaults to SERVER_PORT)")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	name := args[0]
	entry, ok := testRegistry[name]
	if !ok {
		names := make([]string, 0, len(testRegistry))
		for n := range testRegistry {
			names = append(names, n)
		}
		sort.Strings(names)
		return fmt.Errorf("Error: Test module %s not found. Known tests: %v", name, names)
	}

	ip, _ := cmd.Flags().GetString("ip")
	port, _ := cmd.Flags().GetInt("port")
	if ip == "" {
		ip = envOr("SERVER_IP", "127.0.0.1")
	}
	if port == 0 {
		port = envOrInt("SERVER_PORT", 9999)
	}

	return entry(&testConfig{ip: ip, port: port})
}

// runHelloTest drives the handshake + HELLO exchange described in spec §8
// scenario 1 against a live server, from the client's side: generate an
// RSA-2048 key pair, send SESSION_INIT, verify the signed/wrapped session
// key, then exchange a sealed HELLO.
func runHelloTest(cfg *testConfig) error {
	clientPriv, err := keys.Generate()
	if err != nil {
		return fmt.Errorf("generate client key pair: %w", err)
	}
	clientPubDER, err := crypto.MarshalPublicKeyDER(&clientPriv.PublicKey)
	if err != nil {
		return fmt.Errorf("marshal client public key: %w", err)
	}

	addr := net.JoinHostPort(cfg.ip, fmt.Sprintf("%d", cfg.port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	initReq := map[string]string{
		"type":       "SESSION_INIT",
		"client_key": base64.StdEncoding.EncodeToString(clientPubDER),
	}
	if err := sendJSON(conn, initReq); err != nil {
		return fmt.Errorf("send SESSION_INIT: %w", err)
	}

	var initResp struct {
		SessionID    string `json:"session_id"`
		EncryptedKey string `json:"encrypted_key"`
		ServerPubkey string `json:"server_pubkey"`
		Signature    string `json:"signature"`
		Fingerprint  string `json:"fingerprint"`
	}
	if err := recvJSON(conn, &initResp); err != nil {
		return fmt.Errorf("receive SESSION_INIT: %w", err)
	}
	if initResp.SessionID == "" || initResp.EncryptedKey == "" || initResp.ServerPubkey == "" || initResp.Signature == "" {
		return fmt.Errorf("SESSION_INIT response missing required fields")
	}
	fmt.Printf("[OK] Connected to session %s\n", initResp.SessionID)

	serverPubDER, err := hex.DecodeString(initResp.ServerPubkey)
	if err != nil {
		return fmt.Errorf("decode server public key: %w", err)
	}
	serverPub, err := crypto.ParsePublicKeyDER(serverPubDER)
	if err != nil {
		return fmt.Errorf("parse server public key: %w", err)
	}
	if crypto.Fingerprint(serverPubDER) != initResp.Fingerprint {
		return fmt.Errorf("server fingerprint does not match its own published public key")
	}

	wrappedKey, err := hex.DecodeString(initResp.EncryptedKey)
	if err != nil {
		return fmt.Errorf("decode encrypted_key: %w", err)
	}
	aesKey, err := crypto.UnwrapSessionKey(clientPriv, wrappedKey)
	if err != nil {
		return fmt.Errorf("unwrap session key: %w", err)
	}

	signature, err := hex.DecodeString(initResp.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if err := crypto.Verify(serverPub, aesKey, signature); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	fmt.Println("[OK] Session key decrypted and verified")

	nonce, err := crypto.MintNonce()
	if err != nil {
		return fmt.Errorf("mint nonce: %w", err)
	}
	helloPlaintext, err := json.Marshal(map[string]interface{}{
		"type": "HELLO",
		"data": map[string]string{},
	})
	if err != nil {
		return fmt.Errorf("marshal HELLO payload: %w", err)
	}
	ciphertext, err := crypto.Seal(aesKey, nonce, helloPlaintext)
	if err != nil {
		return fmt.Errorf("seal HELLO: %w", err)
	}

	secureMsg := map[string]string{
		"type":       "SECURE_MSG",
		"session_id": initResp.SessionID,
		"nonce":      hex.EncodeToString(nonce),
		"ciphertext": hex.EncodeToString(ciphertext),
	}
	if err := sendJSON(conn, secureMsg); err != nil {
		return fmt.Errorf("send HELLO: %w", err)
	}

	var reply map[string]json.RawMessage
	if err := recvJSON(conn, &reply); err != nil {
		return fmt.Errorf("receive HELLO reply: %w", err)
	}

	var replyType string
	_ = json.Unmarshal(reply["type"], &replyType)

	if replyType != "SECURE_MSG" {
		var message string
		_ = json.Unmarshal(reply["message"], &message)
		return fmt.Errorf("[SERVER ERROR] %s", message)
	}

	var sealed struct {
		Nonce      string `json:"nonce"`
		Ciphertext string `json:"ciphertext"`
	}
	if err := json.Unmarshal(reply["nonce"], &sealed.Nonce); err != nil {
		return fmt.Errorf("decode reply nonce: %w", err)
	}
	if err := json.Unmarshal(reply["ciphertext"], &sealed.Ciphertext); err != nil {
		return fmt.Errorf("decode reply ciphertext: %w", err)
	}

	replyNonce, err := hex.DecodeString(sealed.Nonce)
	if err != nil {
		return fmt.Errorf("decode reply nonce hex: %w", err)
	}
	replyCiphertext, err := hex.DecodeString(sealed.Ciphertext)
	if err != nil {
		return fmt.Errorf("decode reply ciphertext hex: %w", err)
	}
	plaintext, err := crypto.Open(aesKey, replyNonce, replyCiphertext)
	if err != nil {
		return fmt.Errorf("decrypt server response: %w", err)
	}

	fmt.Printf("[RESPONSE] %s\n", string(plaintext))
	return nil
}

// runEncryptionTest exercises the RSA-OAEP/PSS and AES-GCM round trips
// entirely in-process, without a running server, matching
// tests/test_encryption.py's unit-level checks.
func runEncryptionTest(cfg *testConfig) error {
	priv, err := keys.Generate()
	if err != nil {
		return fmt.Errorf("generate key pair: %w", err)
	}

	aesKey, err := crypto.GenerateSessionKey()
	if err != nil {
		return fmt.Errorf("generate session key: %w", err)
	}

	wrapped, err := crypto.WrapSessionKey(&priv.PublicKey, aesKey)
	if err != nil {
		return fmt.Errorf("wrap session key: %w", err)
	}
	unwrapped, err := crypto.UnwrapSessionKey(priv, wrapped)
	if err != nil {
		return fmt.Errorf("unwrap session key: %w", err)
	}
	if hex.EncodeToString(unwrapped) != hex.EncodeToString(aesKey) {
		return fmt.Errorf("unwrapped key does not match original")
	}
	fmt.Println("[OK] RSA-OAEP wrap/unwrap round trip")

	signature, err := crypto.Sign(priv, aesKey)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	if err := crypto.Verify(&priv.PublicKey, aesKey, signature); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	fmt.Println("[OK] RSA-PSS sign/verify round trip")

	nonceA, err := crypto.MintNonce()
	if err != nil {
		return fmt.Errorf("mint nonce: %w", err)
	}
	nonceB, err := crypto.MintNonce()
	if err != nil {
		return fmt.Errorf("mint nonce: %w", err)
	}
	if hex.EncodeToString(nonceA) == hex.EncodeToString(nonceB) {
		return fmt.Errorf("two minted nonces collided")
	}
	if len(nonceA) != crypto.NonceSize {
		return fmt.Errorf("nonce length is %d, want %d", len(nonceA), crypto.NonceSize)
	}

	plaintext := []byte(`{"type":"HELLO"}`)
	ciphertext, err := crypto.Seal(aesKey, nonceA, plaintext)
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	opened, err := crypto.Open(aesKey, nonceA, ciphertext)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if string(opened) != string(plaintext) {
		return fmt.Errorf("round-tripped plaintext does not match original")
	}
	fmt.Println("[OK] AES-256-GCM seal/open round trip")

	fmt.Println("✅ All encryption primitives passed")
	return nil
}

func sendJSON(conn net.Conn, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = conn.Write(raw)
	return err
}

func recvJSON(conn net.Conn, v interface{}) error {
	buf := make([]byte, 65507)
	n, err := conn.Read(buf)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf[:n], v)
}
