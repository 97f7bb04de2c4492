package synthesis

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/rand"

	"github.com/fussybeaver/noria-operator/internal/util/naming"
)

// ZooKeeper ports.
const (
	zookeeperClientPort   = 2181
	zookeeperPeerPort     = 2888
	zookeeperElectionPort = 3888
)

// Property is one key=value line of zookeeper.properties.
type Property struct {
	Key   string
	Value string
}

// Properties is an ordered zookeeper.properties file.
type Properties []Property

// BaseProperties returns the fixed settings every ensemble starts from.
func BaseProperties() Properties {
	return Properties{
		{"autopurge.purgeInterval", "1"},
		{"tickTime", "2000"},
		{"initLimit", "5"},
		{"syncLimit", "2"},
		{"dataDir", zookeeperDataDir},
		{"clientPort", fmt.Sprint(zookeeperClientPort)},
		{"4lw.commands.whitelist", "stat, ruok, conf, isro"},
	}
}

// PeerProperties returns the server.N membership entries for a quorum of
// the given size. Member N+1 is pod ordinal N behind the nodes service.
func PeerProperties(ensemble string, replicas int32) Properties {
	peers := make(Properties, 0, replicas)
	for i := 0; i < int(replicas); i++ {
		peers = append(peers, Property{
			Key:   fmt.Sprintf("server.%d", i+1),
			Value: fmt.Sprintf("%s:%d:%d", naming.EnsemblePeer(ensemble, i), zookeeperPeerPort, zookeeperElectionPort),
		})
	}
	return peers
}

// Concat returns a new list holding p followed by more. Neither input is modified.
func (p Properties) Concat(more Properties) Properties {
	out := make(Properties, 0, len(p)+len(more))
	out = append(out, p...)
	return append(out, more...)
}

// AppendAdditional returns a new list with the user supplied properties
// appended in key order, so equal maps always render the same file.
func (p Properties) AppendAdditional(extra map[string]string) Properties {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sorted := make(Properties, 0, len(keys))
	for _, k := range keys {
		sorted = append(sorted, Property{Key: k, Value: extra[k]})
	}
	return p.Concat(sorted)
}

// String renders the properties file body.
func (p Properties) String() string {
	var b strings.Builder
	for _, prop := range p {
		b.WriteString(prop.Key)
		b.WriteByte('=')
		b.WriteString(prop.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// Hash returns a short, name-safe digest of the rendered file.
func (p Properties) Hash() string {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(p.String()))
	return rand.SafeEncodeString(fmt.Sprint(hasher.Sum32()))
}
