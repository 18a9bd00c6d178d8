// Package tui implements the interactive editor behind 'wifiman-cfg edit'.
//
// It is a Bubble Tea program with two screens:
//   - Discovery: browse mDNS for config servers, or type an address
//   - Editor: reorder, add and remove known networks, change the access
//     point start policy, then push with verification and rollback
//
// Every screen renders through RenderApplicationContainer so the header and
// the context-sensitive help footer stay in the same place.
//
// # Usage
//
//	app := tui.NewAppModel(tui.Options{Password: pw})
//	final, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
//	if err != nil {
//	    return err
//	}
//	if final.(tui.AppModel).Pushed {
//	    // record the push
//	}
//
// Passing Options.Device skips discovery and opens the editor directly. A
// device that rejects the password makes the editor ask for one.
package tui
