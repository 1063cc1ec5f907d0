package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/alan-christopher/bb84sim/cipher"
	"github.com/spf13/cobra"
)

type keyFlags struct {
	key     string
	keyFile string
	format  string
}

func (f *keyFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.key, "key", "", "256-bit shared key as 0s and 1s")
	fs.StringVar(&f.keyFile, "key-file", "", "File holding the shared key")
	fs.StringVar(&f.format, "format", "", "Ciphertext encoding: hex or base64")
}

func (f *keyFlags) cipherFormat(e *env) (cipher.Format, error) {
	if f.format != "" {
		return cipher.ParseFormat(f.format)
	}
	return cipher.ParseFormat(e.cfg.Encryption.Format)
}

// trimKey drops the whitespace formatKey puts between groups.
func trimKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// messageArg joins args, or reads the whole of in when there are none.
func messageArg(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func newEncryptCmd(e *env) *cobra.Command {
	var f keyFlags
	cmd := &cobra.Command{
		Use:   "encrypt [message]",
		Short: "Encrypt a message under the shared key",
		Long:  "Encrypt a message under the shared key. The message is read from stdin when no arguments are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := f.cipherFormat(e)
			if err != nil {
				return err
			}
			key, err := e.sharedKey(cmd, f.key, f.keyFile)
			if err != nil {
				return err
			}
			msg, err := messageArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ct, err := cipher.Seal(msg, key, format)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ct)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newDecryptCmd(e *env) *cobra.Command {
	var f keyFlags
	cmd := &cobra.Command{
		Use:   "decrypt [ciphertext]",
		Short: "Decrypt a message with the receiver's copy of the key",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := f.cipherFormat(e)
			if err != nil {
				return err
			}
			key, err := e.sharedKey(cmd, f.key, f.keyFile)
			if err != nil {
				return err
			}
			ct, err := messageArg(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			msg, err := cipher.Open(strings.TrimSpace(ct), key, format)
			if errors.Is(err, cipher.ErrKeyMismatch) {
				return fmt.Errorf("%w; make sure sender and receiver hold the same key", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newCompareCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <sender-key> <receiver-key>",
		Short: "Check that two independently held keys agree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cipher.Compare(trimKey(args[0]), trimKey(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Keys match.")
			return nil
		},
	}
}
