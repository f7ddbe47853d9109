// Package extract turns raw command output from managed switches into typed
// facts: hardware addresses, forwarding entries, neighbor management
// addresses, hostnames and serial numbers.
//
// Every function here is pure and total. A row that cannot be parsed is
// skipped, and a lookup that finds nothing reports ok == false rather than an
// error, so callers treat "absent" and "unparseable" the same way.
//
// Parsers tolerate the layout differences between firmware families: the
// forwarding-table parser tries a strict column layout first and falls back
// to a whitespace split, and the neighbor parser accepts both the
// "IP address:" and "IP:" label styles.
package extract
