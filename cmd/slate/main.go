// slate converts structured data between serialization formats.
package main

import "github.com/thirteen37/slate/internal/cmd"

func main() {
	cmd.Execute()
}
