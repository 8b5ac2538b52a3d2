// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package security

import "net"

// reservedNetworks are IPv4 ranges that are neither private in the RFC1918
// sense nor publicly routable.
var reservedNetworks = mustParseCIDRs(
	"0.0.0.0/8",     // "this" network
	"100.64.0.0/10", // carrier-grade NAT shared space
	"192.0.0.0/24",  // IETF protocol assignments
	"198.18.0.0/15", // benchmarking
	"240.0.0.0/4",   // reserved, includes broadcast
)

// metadataIPs are cloud instance metadata services.
var metadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"), // AWS, Azure, GCP
	net.ParseIP("fd00:ec2::254"),   // AWS IPv6
	net.ParseIP("100.100.100.200"), // Alibaba Cloud
}

// isPrivateOrLocalIP checks if an IP is private, loopback, link-local,
// unspecified, multicast or otherwise reserved.
func isPrivateOrLocalIP(ip net.IP) bool {
	if ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() {
		return true
	}

	for _, network := range reservedNetworks {
		if network.Contains(ip) {
			return true
		}
	}

	return false
}

// isMetadataIP checks if an IP is a cloud metadata service.
func isMetadataIP(ip net.IP) bool {
	for _, meta := range metadataIPs {
		if meta.Equal(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		networks = append(networks, network)
	}
	return networks
}
