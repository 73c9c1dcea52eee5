// Package main is the entry point for the secstream-cert binary.
// It provides a CLI for generating test certificates, inspecting
// certificate files and probing TLS endpoints with the secure stream
// layer.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/polisai/secstream/pkg/config"
	"github.com/polisai/secstream/pkg/tlstream"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for secstream-cert
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "secstream-cert",
		Short: "Certificate utility for the secstream TLS client layer",
		Long: `Certificate generation, inspection and endpoint probing for secstream.

Example:
  secstream-cert generate --test-suite --output-dir ./certs
  secstream-cert inspect --cert ./certs/server.crt
  secstream-cert probe --host example.com --port 443`,
		Version: version,
	}

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newProbeCmd())

	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	var (
		commonName string
		org        string
		country    string
		dnsNames   []string
		validFor   time.Duration
		keySize    int
		isCA       bool
		certFile   string
		keyFile    string
		outputDir  string
		testSuite  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate self-signed certificates for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if testSuite {
				if err := tlstream.GenerateTestCertificates(outputDir); err != nil {
					return fmt.Errorf("failed to generate test suite: %w", err)
				}
				fmt.Printf("Test certificate suite generated in %s\n", outputDir)
				return nil
			}

			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			certPEM, keyPEM, err := tlstream.GenerateSelfSignedCertificate(tlstream.CertificateGenerationOptions{
				CommonName:   commonName,
				Organization: []string{org},
				Country:      []string{country},
				DNSNames:     dnsNames,
				ValidFor:     validFor,
				IsCA:         isCA,
				KeySize:      keySize,
				SerialNumber: big.NewInt(1),
			})
			if err != nil {
				return fmt.Errorf("failed to generate certificate: %w", err)
			}

			certPath := filepath.Join(outputDir, certFile)
			keyPath := filepath.Join(outputDir, keyFile)
			if err := tlstream.WriteCertificateFiles(certPEM, keyPEM, certPath, keyPath); err != nil {
				return fmt.Errorf("failed to write certificate files: %w", err)
			}

			fmt.Printf("Certificate generated successfully:\n")
			fmt.Printf("  Certificate: %s\n", certPath)
			fmt.Printf("  Private Key: %s\n", keyPath)
			fmt.Printf("  Common Name: %s\n", commonName)
			fmt.Printf("  Valid For: %v\n", validFor)
			if len(dnsNames) > 0 {
				fmt.Printf("  DNS Names: %s\n", strings.Join(dnsNames, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&commonName, "cn", "localhost", "Common name for the certificate")
	cmd.Flags().StringVar(&org, "org", "Test Organization", "Organization name")
	cmd.Flags().StringVar(&country, "country", "US", "Country code")
	cmd.Flags().StringSliceVar(&dnsNames, "dns", nil, "DNS names (SANs)")
	cmd.Flags().DurationVar(&validFor, "valid-for", 365*24*time.Hour, "Certificate validity duration")
	cmd.Flags().IntVar(&keySize, "key-size", 2048, "RSA key size in bits")
	cmd.Flags().BoolVar(&isCA, "ca", false, "Generate a CA certificate")
	cmd.Flags().StringVar(&certFile, "cert", "cert.pem", "Output certificate file")
	cmd.Flags().StringVar(&keyFile, "key", "key.pem", "Output private key file")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "Output directory for certificates")
	cmd.Flags().BoolVar(&testSuite, "test-suite", false, "Generate a complete test certificate suite")

	return cmd
}

func newInspectCmd() *cobra.Command {
	var certFile string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a certificate file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if certFile == "" {
				return fmt.Errorf("--cert flag is required")
			}

			cert, err := tlstream.LoadCertificateFromPath(certFile)
			if err != nil {
				return fmt.Errorf("failed to load certificate: %w", err)
			}

			printCertificateInfo(certFile, cert.X509, string(cert.Encoding))
			return nil
		},
	}

	cmd.Flags().StringVar(&certFile, "cert", "", "Certificate file to inspect")

	return cmd
}

func printCertificateInfo(path string, cert *x509.Certificate, encoding string) {
	fmt.Printf("Certificate Information:\n")
	fmt.Printf("  File: %s\n", path)
	fmt.Printf("  Encoding: %s\n", encoding)
	fmt.Printf("  Subject: %s\n", cert.Subject)
	fmt.Printf("  Issuer: %s\n", cert.Issuer)
	fmt.Printf("  Valid From: %s\n", cert.NotBefore.Format(time.RFC3339))
	fmt.Printf("  Valid Until: %s\n", cert.NotAfter.Format(time.RFC3339))

	now := time.Now()
	switch {
	case now.After(cert.NotAfter):
		fmt.Printf("  Status: EXPIRED (%v ago)\n", now.Sub(cert.NotAfter).Truncate(time.Hour))
	case now.Before(cert.NotBefore):
		fmt.Printf("  Status: NOT YET VALID (valid in %v)\n", cert.NotBefore.Sub(now).Truncate(time.Hour))
	default:
		fmt.Printf("  Status: VALID (expires in %v)\n", cert.NotAfter.Sub(now).Truncate(time.Hour))
	}

	if len(cert.DNSNames) > 0 {
		fmt.Printf("  DNS Names: %s\n", strings.Join(cert.DNSNames, ", "))
	}
	if len(cert.IPAddresses) > 0 {
		var ips []string
		for _, ip := range cert.IPAddresses {
			ips = append(ips, ip.String())
		}
		fmt.Printf("  IP Addresses: %s\n", strings.Join(ips, ", "))
	}
	if cert.IsCA {
		fmt.Printf("  CA: true\n")
	}
}

func newValidateCmd() *cobra.Command {
	var (
		certFile string
		keyFile  string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a certificate file and optional key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if certFile == "" {
				return fmt.Errorf("--cert flag is required")
			}

			cert, err := tlstream.LoadCertificateFromPath(certFile)
			if err != nil {
				return fmt.Errorf("certificate validation failed: %w", err)
			}

			now := time.Now()
			if now.After(cert.X509.NotAfter) {
				return fmt.Errorf("certificate expired %v ago", now.Sub(cert.X509.NotAfter).Truncate(time.Hour))
			}
			if now.Before(cert.X509.NotBefore) {
				return fmt.Errorf("certificate not valid for another %v", cert.X509.NotBefore.Sub(now).Truncate(time.Hour))
			}

			if keyFile != "" {
				if _, err := tls.LoadX509KeyPair(certFile, keyFile); err != nil {
					return fmt.Errorf("key pair validation failed: %w", err)
				}
				fmt.Printf("Private key matches certificate: %s\n", keyFile)
			}

			fmt.Printf("Certificate is valid: %s\n", certFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&certFile, "cert", "", "Certificate file to validate")
	cmd.Flags().StringVar(&keyFile, "key", "", "Private key file to validate against the certificate")

	return cmd
}

func newProbeCmd() *cobra.Command {
	var (
		host       string
		port       int
		trustMode  string
		caFile     string
		caBundle   string
		engine     string
		minVersion string
		timeout    time.Duration
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe a TLS endpoint and report the negotiated session",
		Long: `Probe opens a TCP connection to the target, performs the TLS client
handshake under the selected trust policy and engine, and prints the
negotiated protocol version and cipher suite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)

			trust, err := buildTrustPolicy(trustMode, caFile, caBundle)
			if err != nil {
				return err
			}

			cfg := &config.Config{
				Host:             host,
				Trust:            trust,
				Engine:           engine,
				MinVersion:       minVersion,
				HandshakeTimeout: timeout,
			}

			factory, err := tlstream.NewStreamFactory(cfg, tlstream.WithLogger(logger))
			if err != nil {
				return err
			}

			addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			raw, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", addr, err)
			}

			stream, err := factory.Connect(ctx, raw)
			if err != nil {
				return err
			}
			defer stream.Close()

			info := stream.Info()
			fmt.Printf("Handshake succeeded:\n")
			fmt.Printf("  Target: %s\n", addr)
			fmt.Printf("  Engine: %s\n", info.Engine)
			fmt.Printf("  Version: %s\n", info.Version)
			fmt.Printf("  Cipher Suite: %s\n", info.CipherSuite)
			fmt.Printf("  Server Name: %s\n", info.ServerName)
			if info.NegotiatedProtocol != "" {
				fmt.Printf("  ALPN: %s\n", info.NegotiatedProtocol)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Target hostname (required)")
	cmd.Flags().IntVar(&port, "port", 443, "Target port")
	cmd.Flags().StringVar(&trustMode, "trust", "default", "Trust policy: default, trust_all, ca_file, ca_bundle")
	cmd.Flags().StringVar(&caFile, "ca-file", "", "CA certificate file for the ca_file trust policy")
	cmd.Flags().StringVar(&caBundle, "ca-bundle", "", "PEM bundle file for the ca_bundle trust policy")
	cmd.Flags().StringVar(&engine, "engine", "", "TLS engine: std or utls (default std)")
	cmd.Flags().StringVar(&minVersion, "min-version", "", "Minimum TLS version: 1.2 or 1.3")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Connection and handshake timeout")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("host")

	return cmd
}

// buildTrustPolicy maps CLI flags onto a trust policy. The ca_bundle
// mode reads the named file up front so the policy carries the PEM
// bytes themselves.
func buildTrustPolicy(mode, caFile, caBundle string) (config.TrustPolicy, error) {
	switch config.TrustMode(mode) {
	case config.TrustModeDefault:
		return config.TrustDefault(), nil
	case config.TrustModeAll:
		return config.TrustAll(), nil
	case config.TrustModeCAFile:
		if caFile == "" {
			return config.TrustPolicy{}, fmt.Errorf("--ca-file is required for the ca_file trust policy")
		}
		return config.TrustCAFile(caFile), nil
	case config.TrustModeCABundle:
		if caBundle == "" {
			return config.TrustPolicy{}, fmt.Errorf("--ca-bundle is required for the ca_bundle trust policy")
		}
		data, err := os.ReadFile(caBundle)
		if err != nil {
			return config.TrustPolicy{}, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		if block, _ := pem.Decode(data); block == nil {
			return config.TrustPolicy{}, fmt.Errorf("%s contains no PEM data", caBundle)
		}
		return config.TrustCABundle(data), nil
	default:
		return config.TrustPolicy{}, fmt.Errorf("unknown trust policy %q", mode)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
