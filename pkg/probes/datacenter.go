package probes

// datacenterASNs lists autonomous systems of cloud, hosting and VPN exit providers.
//
// It only annotates diagnostics: a datacenter exit is a strong hint for an operator
// reading the logs, but the verdict stays a function of the four probe scores.
var datacenterASNs = map[uint]string{
	// Major cloud providers
	16509:  "Amazon.com (AWS)",
	14618:  "Amazon.com (AWS)",
	15169:  "Google Cloud",
	396982: "Google Cloud",
	8075:   "Microsoft Azure",
	14061:  "DigitalOcean",

	// European hosting
	24940: "Hetzner Online GmbH",
	16276: "OVH SAS",
	12876: "Online S.A.S. (Scaleway)",
	49981: "WorldStream",

	// VPN/proxy infrastructure
	20473: "Choopa, LLC (Vultr)",
	60068: "Datacamp Limited (CDN77)",
	9009:  "M247 Europe",
	13335: "Cloudflare", // includes WARP

	// Other hosting
	63949: "Linode",
	46606: "Unified Layer",
	36352: "ColoCrossing",
}

// DatacenterProvider returns the provider name when asn belongs to a known
// cloud/hosting/VPN network.
func DatacenterProvider(asn uint) (string, bool) {
	name, ok := datacenterASNs[asn]
	return name, ok
}
