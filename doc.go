/*
Package cfddns keeps a single Cloudflare "A" record pointed at the host's public IPv4 address.

Usage will always start with [cfddns.New],
which returns the DDNSClient implementation.
A client combines a [Resolver] that finds the current address,
a [Cache] that remembers the last address published,
and a [Provider] that updates the record.
Each call to RunDDNS performs exactly one check and at most one update.
Scheduling repeated runs is left to cron or a similar job runner.
*/
package cfddns
