// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

// Usage:
//
//	sbtctl allowlist build allowlist.yaml -o proofs.json
//	sbtctl claim --proofs proofs.json
package main

import "github.com/iotexproject/iotex-sbt/tools/sbtctl/internal/cmd"

func main() {
	cmd.Execute()
}
