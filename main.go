// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/Bakobiibizo/module-validator-rust/cmd/registrar"

func main() {
	cmd.Execute()
}
