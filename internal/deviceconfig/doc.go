// Package deviceconfig is an HTTP client for a remote wifiman config
// server.
//
// It reads and replaces the network document with Basic auth, validates
// documents before they leave the operator's machine, and verifies every
// push by reading the document back. A failed verification restores the
// document that was on the device before the push.
//
// # Usage Example
//
//	client := deviceconfig.NewClient("192.168.4.16", 8080)
//	client.Password = os.Getenv("WIFIMAN_PASSWORD")
//
//	current, err := client.GetDocument()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	updated, _, err := deviceconfig.NewDocumentBuilder(current).
//	    AddNetwork("Cabin", "pine-needles", false).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result := deviceconfig.NewRollbackManager(client).SafePush(updated, nil, "add Cabin")
//	fmt.Println(result)
//
// # Error Handling
//
// All client errors are *ClientError values classified by ErrorType, with
// helpers such as IsAuthError and IsNetworkError and operator-facing text
// from GetShortErrorMessage and GetTroubleshootingHint.
package deviceconfig
