package protocol

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fixed reply sentences sent by the image server.
const (
	ReplyLoginOK       = "Log in successful\n"
	ReplyLoginFailed   = "Log in unsuccessful\n"
	ReplyGoodbye       = "Goodbye.\n"
	ReplyServerFull    = "Sorry, the image server is full\n"
	ReplyImageHeader   = "Your requested image:\n\n"
	ReplyNeedSignIn    = "You need to be signed in to view it\n"
	ReplyCheckingImage = "Checking image is not on the server already...\n"
)

func CountReply(n int) string {
	return fmt.Sprintf("There are %d images on the server\n", n)
}

func AddedReply(index int) string {
	return fmt.Sprintf("Your image was added at index %d\n", index)
}

func DuplicateReply(caption string) string {
	return fmt.Sprintf("Not adding image %s, it is already present\n", caption)
}

func RestrictedReply(caption string) string {
	return fmt.Sprintf("Access to the image with caption '%s' is restricted\n", caption) + ReplyNeedSignIn
}

func OutOfRangeReply(index uint32, total int) string {
	return fmt.Sprintf("Sorry, you asked for the image at index %d\n", index) +
		fmt.Sprintf("but there are only %d images on the server. (indexing starts at 0)\n", total)
}

func UnknownCommandReply(op byte) string {
	return fmt.Sprintf("Unrecognised command %c\n", op)
}

func MalformedReply(err error) string {
	return fmt.Sprintf("Malformed command: %v\n", err)
}

func HashLengthReply(want, got int) string {
	return fmt.Sprintf("Image hash must be %d bytes, got %d\n", want, got)
}

// WelcomeBanner is sent once when a client connects.
func WelcomeBanner() string {
	var b strings.Builder
	row := func(cmd, desc string) {
		fmt.Fprintf(&b, "\t%-40s - %s\n", cmd, desc)
	}
	b.WriteString("Welcome to the image server\n")
	b.WriteString("Available commands:\n")
	row("Command", "Description")
	row("q", "Disconnect.")
	row("c", "Get the number of images on the server.")
	row("g<num>", "Get the image at index <num>.")
	row("l<password>", "Login with the specified password.")
	row("a<is_restricted><caption><imageascii><hash>", "Add a new image to the server.")
	row("", "<is_restricted>\t1 byte, 0 if false, 1 if true.")
	row("", "<caption>\t\tNull terminated caption string.")
	row("", "<imageascii>\t\tNull terminated ascii image data.")
	row("", "<hash>\t\t256 byte hash of the image.")
	b.WriteString("\n\n")
	b.WriteString("Please do not attempt to access restricted images without correct authorisation.\n")
	return b.String()
}

var countPattern = regexp.MustCompile(`There are (\d+) images on the server`)

// ParseCountReply extracts N from a count reply.
func ParseCountReply(reply []byte) (int, error) {
	m := countPattern.FindSubmatch(reply)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnexpectedReply, truncate(reply, 64))
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnexpectedReply, err)
	}
	return n, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
