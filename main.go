// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/tbxtools/tbxgraph/cmd/tbxgraph"

func main() {
	cmd.Execute()
}
