// SPDX-License-Identifier: MPL-2.0

package main

import cmd "magepack/cmd/magepack"

func main() {
	cmd.Execute()
}
