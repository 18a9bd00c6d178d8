package wpa

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/muurk/wifiman/internal/station"
)

// addressInfo reads the IPv4 configuration of ifname from the kernel.
func addressInfo(ifname string) (station.AddressInfo, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return station.AddressInfo{}, fmt.Errorf("could not find interface %s: %w", ifname, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return station.AddressInfo{}, fmt.Errorf("could not list addresses of %s: %w", ifname, err)
	}

	info := station.AddressInfo{IP: "0.0.0.0"}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.To4() == nil {
			continue
		}
		info.IP = ipnet.IP.String()
		info.Netmask = net.IP(ipnet.Mask).String()
		break
	}

	if f, err := os.Open("/proc/net/route"); err == nil {
		info.Gateway = defaultGateway(f, ifname)
		f.Close()
	}
	if f, err := os.Open("/etc/resolv.conf"); err == nil {
		info.DNS = firstNameserver(f)
		f.Close()
	}

	return info, nil
}

// defaultGateway parses /proc/net/route for the default route of ifname.
func defaultGateway(r io.Reader, ifname string) string {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 || fields[0] != ifname || fields[1] != "00000000" {
			continue
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, binary.LittleEndian.Uint32(raw))
		return ip.String()
	}
	return ""
}

func firstNameserver(r io.Reader) string {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[0] == "nameserver" {
			return fields[1]
		}
	}
	return ""
}
