// certgen is a CLI tool for generating test signing hierarchies: a
// root/intermediate/leaf certificate chain plus a sample signed payload,
// for exercising payload verification without real App Store material.
package main

import (
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/storekit-community/appstore-server-go/internal/appstore"
	"github.com/storekit-community/appstore-server-go/internal/crypto"
	"github.com/storekit-community/appstore-server-go/internal/version"
)

const (
	rootFileName    = "root.pem"
	leafKeyFileName = "leaf-key.pem"
	sampleFileName  = "sample-transaction.jws"
)

var (
	outputDir    string
	organization string
	bundleID     string
	withSample   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "certgen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Test certificate chain generator",
		Long:              "Generate a root/intermediate/leaf ECDSA signing chain and sample signed payloads for verification testing",
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new signing chain",
		Long:  "Generate a new root/intermediate/leaf chain, writing the root (trust anchor) and leaf key as PEM",
		RunE:  runGenerate,
	}

	generateCmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for generated files [required]")
	generateCmd.Flags().StringVar(&organization, "org", "example.com", "Organization name for certificate subjects")
	generateCmd.Flags().StringVar(&bundleID, "bundle-id", "com.example.app", "Bundle ID embedded in the sample payload")
	generateCmd.Flags().BoolVar(&withSample, "sample", false, "Also write a sample signed transaction payload")
	generateCmd.MarkFlagRequired("outputdir")

	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// make the directory if it doesn't exist
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	fmt.Printf("Generating ECDSA signing chain for organization: %s\n", organization)

	chain, err := crypto.GenerateSigningChain(crypto.ChainOptions{
		Organization: organization,
	})
	if err != nil {
		return fmt.Errorf("failed to generate signing chain: %w", err)
	}

	rootPath := filepath.Join(outputDir, rootFileName)
	if err := os.WriteFile(rootPath, chain.RootPEM(), 0644); err != nil {
		return fmt.Errorf("failed to write root certificate: %w", err)
	}
	fmt.Printf("✓ Trust anchor: %s\n", rootPath)

	keyDER, err := x509.MarshalPKCS8PrivateKey(chain.LeafKey)
	if err != nil {
		return fmt.Errorf("failed to marshal leaf key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	keyPath := filepath.Join(outputDir, leafKeyFileName)
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write leaf key: %w", err)
	}
	fmt.Printf("✓ Leaf key:     %s\n", keyPath)

	if !withSample {
		return nil
	}

	payload, err := json.Marshal(appstore.TransactionPayload{
		TransactionID: "1",
		BundleID:      bundleID,
		Environment:   appstore.EnvironmentSandbox,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sample payload: %w", err)
	}

	signed, err := crypto.SignCompact(payload, chain.LeafKey, chain.Certificates())
	if err != nil {
		return fmt.Errorf("failed to sign sample payload: %w", err)
	}

	samplePath := filepath.Join(outputDir, sampleFileName)
	if err := os.WriteFile(samplePath, []byte(signed), 0644); err != nil {
		return fmt.Errorf("failed to write sample payload: %w", err)
	}
	fmt.Printf("✓ Sample JWS:   %s (bundleId: %s)\n", samplePath, bundleID)

	return nil
}
