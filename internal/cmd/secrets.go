package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/manman/internal/envelope"
	"github.com/cameronsjo/manman/internal/envvalue"
	"github.com/cameronsjo/manman/internal/secrets"
	"github.com/cameronsjo/manman/internal/ui"
)

// SecretKeyEnv supplies the key to secrets decrypt when --key is omitted.
const SecretKeyEnv = "MANMAN_SECRET_KEY"

var (
	encryptFile   string
	encryptKey    string
	encryptOutput string
	encryptBlock  bool

	decryptKey  string
	decryptFile string
	decryptEnv  string

	keygenLength int
)

// readKeyPrompt reads a key from the terminal without echo. Tests
// replace it.
var readKeyPrompt = func(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no key given: use --key or set %s", SecretKeyEnv)
	}

	fmt.Fprint(os.Stderr, prompt)
	key, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(string(key)), nil
}

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Encrypt and decrypt secret values",
}

var secretsEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a file of secret values",
	Long: `Encrypt every value of a YAML or JSON mapping of secret names to
values. A value may be a plain string or a per-environment mapping with an
optional _default entry; each entry is encrypted separately.

A new key is generated when --key is omitted and printed to stderr. Keep
it: it is needed to decrypt at render time.

Examples:
  manman secrets encrypt -f secrets.yaml
  manman secrets encrypt -f secrets.yaml --key 6c7f...e1 -o encrypted.yaml
  manman secrets encrypt -f secrets.yaml --block   # ready-made secrets block`,
	Args: cobra.NoArgs,
	RunE: runSecretsEncrypt,
}

var secretsDecryptCmd = &cobra.Command{
	Use:   "decrypt [ciphertext]",
	Short: "Decrypt a value or a file of values",
	Long: fmt.Sprintf(`Decrypt one ciphertext, or a file of encrypted values for one
environment.

The key is taken from --key, then %s, then prompted for without echo
when stdin is a terminal.

Examples:
  manman secrets decrypt AAAQ...==
  manman secrets decrypt -f encrypted.yaml --env prod`, SecretKeyEnv),
	Args: cobra.MaximumNArgs(1),
	RunE: runSecretsDecrypt,
}

var secretsKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new hex-encoded key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := envelope.GenerateKey(keygenLength)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	secretsEncryptCmd.Flags().StringVarP(&encryptFile, "file", "f", "", "Secret values (YAML or JSON, - for stdin)")
	secretsEncryptCmd.Flags().StringVar(&encryptKey, "key", "", "Hex-encoded key (generated when omitted)")
	secretsEncryptCmd.Flags().StringVarP(&encryptOutput, "output", "o", "", "Write to file instead of stdout")
	secretsEncryptCmd.Flags().BoolVar(&encryptBlock, "block", false, "Print a complete secrets block including the key")

	secretsDecryptCmd.Flags().StringVar(&decryptKey, "key", "", "Hex-encoded key")
	secretsDecryptCmd.Flags().StringVarP(&decryptFile, "file", "f", "", "Encrypted values (YAML or JSON)")
	secretsDecryptCmd.Flags().StringVarP(&decryptEnv, "env", "e", "", "Environment to resolve values for (with --file)")
	secretsDecryptCmd.RegisterFlagCompletionFunc("env", completeEnvironments)

	secretsKeygenCmd.Flags().IntVar(&keygenLength, "length", envelope.DefaultKeyLength, "Key length in bytes (16, 24 or 32)")

	secretsCmd.AddCommand(secretsEncryptCmd)
	secretsCmd.AddCommand(secretsDecryptCmd)
	secretsCmd.AddCommand(secretsKeygenCmd)
	rootCmd.AddCommand(secretsCmd)
}

func runSecretsEncrypt(cmd *cobra.Command, args []string) error {
	if encryptKey != "" {
		if _, err := envelope.New(encryptKey); err != nil {
			return fmt.Errorf("invalid secret key: %w", err)
		}
	}

	data, err := readInput(cmd, encryptFile)
	if err != nil {
		return err
	}
	var envs envvalue.Map[string]
	if err := decodeInput(encryptFile, data, &envs); err != nil {
		return err
	}

	encrypted, key, err := secrets.EncryptAll(envs, encryptKey)
	if err != nil {
		return err
	}

	var doc any = encrypted
	if encryptBlock {
		doc = map[string]any{"secrets": secrets.Block{Key: key, Envs: encrypted}}
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode secrets: %w", err)
	}

	if err := writeOutput(cmd, encryptOutput, string(out)); err != nil {
		return err
	}
	if encryptKey == "" && !encryptBlock {
		ui.Warning("Generated key (store it safely): %s", key)
	}
	ui.Info("Encrypted %d secret(s)", len(encrypted))
	return nil
}

func runSecretsDecrypt(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && decryptFile == "" {
		return errors.New("give a ciphertext or --file")
	}
	if len(args) > 0 && decryptFile != "" {
		return errors.New("give either a ciphertext or --file, not both")
	}

	key, err := resolveDecryptKey()
	if err != nil {
		return err
	}
	cipher, err := envelope.New(key)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		plain, err := cipher.Decrypt(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), plain)
		return nil
	}

	if decryptEnv == "" {
		return errors.New("--env is required with --file")
	}
	data, err := readInput(cmd, decryptFile)
	if err != nil {
		return err
	}
	var envs envvalue.Map[string]
	if err := decodeInput(decryptFile, data, &envs); err != nil {
		return err
	}

	plain := make(map[string]string, len(envs))
	block := &secrets.Block{Key: key, Envs: envs}
	if err := secrets.NewMaterializer(nil).Materialize(cmd.Context(), block, strings.ToLower(decryptEnv), plain); err != nil {
		return err
	}
	for _, name := range envs.Names() {
		if v, ok := plain[name]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", name, v)
		}
	}
	return nil
}

// resolveDecryptKey picks the key from the flag, the environment or a
// prompt, in that order.
func resolveDecryptKey() (string, error) {
	if decryptKey != "" {
		return decryptKey, nil
	}
	if key := strings.TrimSpace(os.Getenv(SecretKeyEnv)); key != "" {
		return key, nil
	}
	return readKeyPrompt("Secret key: ")
}
