package format

import "fmt"

// ResolveInput picks the input format. An explicit flag wins; otherwise the
// extension of path decides. Special emitters and output-only formats are
// rejected because they cannot be read.
func ResolveInput(flag ID, path string) (ID, error) {
	id := flag
	if id == Unknown {
		if path == "" || path == "-" {
			return Unknown, &UnknownFormatError{Reason: "--from is required when reading from stdin"}
		}
		var ok bool
		id, ok = FromExtension(path)
		if !ok {
			return Unknown, &UnknownFormatError{Input: path, Reason: "cannot infer the input format from the file extension, use --from"}
		}
	}

	if id.IsSpecial() {
		return Unknown, &UnknownFormatError{Input: id.String(), Reason: "special emitters are output-only"}
	}
	if !id.CanDecode() {
		return Unknown, &UnknownFormatError{Input: id.String(), Reason: fmt.Sprintf("%s is not self-describing and can only be written", id.Name())}
	}
	return id, nil
}

// ResolveOutput picks the output format. An explicit flag wins, then the
// extension of path, and finally the input format so that a bare input path
// is reformatted in place of its own format.
func ResolveOutput(flag ID, path string, input ID) (ID, error) {
	if flag != Unknown {
		return flag, nil
	}
	if path != "" && path != "-" {
		if id, ok := FromExtension(path); ok {
			return id, nil
		}
	}
	if input == Unknown {
		return Unknown, &UnknownFormatError{Input: path, Reason: "no output format given"}
	}
	return input, nil
}
